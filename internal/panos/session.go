package panos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vpn-provisioner/internal/model"
)

// ErrNoActiveDevice is returned when neither HA peer reports itself active.
var ErrNoActiveDevice = errors.New("no active firewall in HA pair")

const (
	haStateCmd = "<show><high-availability><state></state></high-availability></show>"
	haSyncCmd  = "<request><high-availability><sync-to-remote><running-config></running-config></sync-to-remote></high-availability></request>"
)

// Session is a firewall and its HA peer. Configuration calls go to
// whichever device RefreshHAActive found active; before that, the primary.
type Session struct {
	Primary *Client
	Peer    *Client

	loc    locations
	active *Client
}

func NewSession(primary, peer *Client, vsys string) *Session {
	return &Session{
		Primary: primary,
		Peer:    peer,
		loc:     locations{vsys: vsys},
		active:  primary,
	}
}

// NewSessionFromSettings builds the primary and peer clients from settings.
func NewSessionFromSettings(s *model.Settings) *Session {
	opts := ClientOptions{
		InsecureSkipVerify: s.Firewalls.InsecureSkipVerify,
		Timeout:            s.Firewalls.Timeout.Duration,
	}
	var peer *Client
	if s.Firewalls.Peer != "" {
		peer = NewClient(s.Firewalls.Peer, s.APIKey.Key, opts)
	}
	return NewSession(NewClient(s.Firewalls.Primary, s.APIKey.Key, opts), peer, s.Firewalls.Vsys)
}

// Active returns the device configuration calls are sent to.
func (s *Session) Active() *Client {
	return s.active
}

// HAState queries the HA status of c.
func (s *Session) HAState(ctx context.Context, c *Client) (model.HAState, error) {
	inner, err := c.Op(ctx, haStateCmd)
	if err != nil {
		return model.HAState{}, fmt.Errorf("failed to query HA state of %s: %w", c.Host, err)
	}
	var r haResult
	if err := decodeResult(inner, &r); err != nil {
		return model.HAState{}, fmt.Errorf("failed to decode HA state of %s: %w", c.Host, err)
	}
	return model.HAState{
		Enabled:     bool(r.Enabled),
		LocalState:  r.LocalState,
		PeerState:   r.PeerState,
		RunningSync: r.RunningSync,
	}, nil
}

// RefreshHAActive determines which device of the pair is active.
func (s *Session) RefreshHAActive(ctx context.Context) error {
	state, err := s.HAState(ctx, s.Primary)
	if err != nil {
		return err
	}
	if state.Active() {
		s.active = s.Primary
		slog.Info("Active firewall selected", "host", s.Primary.Host, "ha_enabled", state.Enabled, "state", state.LocalState)
		return nil
	}
	if s.Peer == nil {
		return fmt.Errorf("%s is %s and no peer is configured: %w", s.Primary.Host, state.LocalState, ErrNoActiveDevice)
	}

	peerState, err := s.HAState(ctx, s.Peer)
	if err != nil {
		return err
	}
	if !peerState.Active() {
		return fmt.Errorf("%s is %s, %s is %s: %w", s.Primary.Host, state.LocalState, s.Peer.Host, peerState.LocalState, ErrNoActiveDevice)
	}
	s.active = s.Peer
	slog.Info("Active firewall selected", "host", s.Peer.Host, "state", peerState.LocalState)
	return nil
}

// ConfigSynced reports whether the active device's running config is in
// sync with its peer. A standalone device is always in sync.
func (s *Session) ConfigSynced(ctx context.Context) (bool, error) {
	state, err := s.HAState(ctx, s.active)
	if err != nil {
		return false, err
	}
	slog.Debug("HA sync state", "host", s.active.Host, "running_sync", state.RunningSync)
	return state.Synced(), nil
}

// SynchronizeConfig pushes the active device's running config to its
// peer and returns once the device has answered.
func (s *Session) SynchronizeConfig(ctx context.Context) error {
	if _, err := s.active.Op(ctx, haSyncCmd); err != nil {
		return fmt.Errorf("failed to synchronize config from %s: %w", s.active.Host, err)
	}
	return nil
}

// Create creates one object.
func (s *Session) Create(ctx context.Context, obj model.Object) error {
	return s.CreateBulk(ctx, obj.Category(), []model.Object{obj})
}

// CreateBulk creates objs with a single set call. All objects must be of
// category c and share a parent location.
func (s *Session) CreateBulk(ctx context.Context, c model.Category, objs []model.Object) error {
	if len(objs) == 0 {
		return nil
	}
	parent, err := s.loc.parent(objs[0])
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if obj.Category() != c {
			return fmt.Errorf("cannot create %s %s in a %s batch", obj.Category(), obj.EntryName(), c)
		}
		p, err := s.loc.parent(obj)
		if err != nil {
			return err
		}
		if p != parent {
			return fmt.Errorf("%s %s is not under %s", c, obj.EntryName(), parent)
		}
	}

	element, err := encodeEntries(objs)
	if err != nil {
		return err
	}
	if err := s.active.Set(ctx, parent, element); err != nil {
		return fmt.Errorf("failed to create %d %s object(s): %w", len(objs), c, err)
	}
	if c == model.CategoryTunnelInterface {
		return s.importInterfaces(ctx, objs)
	}
	return nil
}

// importInterfaces adds the interfaces to the vsys import list. Interfaces
// outside it cannot be used by the vsys zones.
func (s *Session) importInterfaces(ctx context.Context, objs []model.Object) error {
	names := make([]string, len(objs))
	for i, obj := range objs {
		names[i] = obj.EntryName()
	}
	element, err := memberElements(names)
	if err != nil {
		return err
	}
	if err := s.active.Set(ctx, s.loc.interfaceImportXPath(), element); err != nil {
		return fmt.Errorf("failed to import %d interface(s) into %s: %w", len(names), s.loc.vsys, err)
	}
	return nil
}

// VirtualRouter fetches the named virtual router from the candidate config.
func (s *Session) VirtualRouter(ctx context.Context, name model.RouterName) (*model.VirtualRouter, error) {
	inner, err := s.active.Get(ctx, s.loc.routerXPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch virtual router %s: %w", name, err)
	}
	var r routerResult
	if err := decodeResult(inner, &r); err != nil {
		return nil, fmt.Errorf("failed to decode virtual router %s: %w", name, err)
	}
	for _, e := range r.Entries {
		if e.Name != string(name) {
			continue
		}
		vr := &model.VirtualRouter{Name: name}
		for _, m := range e.Interfaces.Members {
			vr.Interfaces = append(vr.Interfaces, model.InterfaceName(m))
		}
		return vr, nil
	}
	return nil, fmt.Errorf("virtual router %s not found on %s", name, s.active.Host)
}

// UpdateVirtualRouter replaces the interface list of vr on the device.
func (s *Session) UpdateVirtualRouter(ctx context.Context, vr *model.VirtualRouter) error {
	element, err := xmlString("interface", members(vr.Interfaces))
	if err != nil {
		return err
	}
	if err := s.active.Edit(ctx, s.loc.routerXPath(vr.Name)+"/interface", element); err != nil {
		return fmt.Errorf("failed to update virtual router %s: %w", vr.Name, err)
	}
	return nil
}

// AddressGroups fetches every address group in the vsys.
func (s *Session) AddressGroups(ctx context.Context) ([]model.AddressGroup, error) {
	inner, err := s.active.Get(ctx, s.loc.addressGroupsXPath())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch address groups: %w", err)
	}
	var r addressGroupResult
	if err := decodeResult(inner, &r); err != nil {
		return nil, fmt.Errorf("failed to decode address groups: %w", err)
	}
	groups := make([]model.AddressGroup, 0, len(r.Entries))
	for _, e := range r.Entries {
		g := model.AddressGroup{Name: e.Name, Dynamic: e.Dynamic != nil}
		if e.Static != nil {
			for _, m := range e.Static.Members {
				g.Static = append(g.Static, model.AddressName(m))
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// UpdateAddressGroup replaces the static members of g on the device.
func (s *Session) UpdateAddressGroup(ctx context.Context, g *model.AddressGroup) error {
	element, err := xmlString("static", members(g.Static))
	if err != nil {
		return err
	}
	xpath := entryXPath(s.loc.addressGroupsXPath(), g.Name) + "/static"
	if err := s.active.Edit(ctx, xpath, element); err != nil {
		return fmt.Errorf("failed to update address group %s: %w", g.Name, err)
	}
	return nil
}
