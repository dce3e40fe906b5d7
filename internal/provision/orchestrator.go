package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"vpn-provisioner/internal/model"
)

var (
	ErrAddressGroupNotFound  = errors.New("address group not found")
	ErrAddressGroupAmbiguous = errors.New("address group name is not unique")
	ErrAddressGroupDynamic   = errors.New("address group is dynamic")
)

// Device is the firewall configuration API the orchestrator drives.
type Device interface {
	RefreshHAActive(ctx context.Context) error
	ConfigSynced(ctx context.Context) (bool, error)
	SynchronizeConfig(ctx context.Context) error

	Create(ctx context.Context, obj model.Object) error
	CreateBulk(ctx context.Context, c model.Category, objs []model.Object) error

	VirtualRouter(ctx context.Context, name model.RouterName) (*model.VirtualRouter, error)
	UpdateVirtualRouter(ctx context.Context, vr *model.VirtualRouter) error
	AddressGroups(ctx context.Context) ([]model.AddressGroup, error)
	UpdateAddressGroup(ctx context.Context, g *model.AddressGroup) error
}

// Orchestrator pushes a plan to a Device in ApplyOrder. It never commits.
type Orchestrator struct {
	Device Device
	// Out receives one progress line per completed step.
	Out io.Writer
	// PerItem lists categories created with one call per object.
	PerItem map[model.Category]bool
}

// Result describes what Apply changed.
type Result struct {
	Created map[model.Category]int
	Router  *model.RouterSnapshot
	Group   *model.GroupSnapshot
}

func New(d Device, out io.Writer, perItem map[model.Category]bool) *Orchestrator {
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{Device: d, Out: out, PerItem: perItem}
}

func (o *Orchestrator) progress(format string, args ...any) {
	fmt.Fprintf(o.Out, format+"\n", args...)
}

// CheckHA selects the active firewall and synchronizes the pair if its
// configs differ. Nothing has been pushed when this fails.
func (o *Orchestrator) CheckHA(ctx context.Context) error {
	o.progress("Checking HA configuration")
	if err := o.Device.RefreshHAActive(ctx); err != nil {
		return fmt.Errorf("HA check failed: %w", err)
	}
	synced, err := o.Device.ConfigSynced(ctx)
	if err != nil {
		return fmt.Errorf("HA check failed: %w", err)
	}
	if synced {
		slog.Info("HA peers are config-synchronized")
		return nil
	}

	o.progress("Configs are not synchronized, synchronizing first")
	slog.Warn("HA peers are not config-synchronized, synchronizing")
	if err := o.Device.SynchronizeConfig(ctx); err != nil {
		return fmt.Errorf("HA synchronization failed: %w", err)
	}
	return nil
}

type step struct {
	category model.Category
	done     string
	run      func(ctx context.Context, p *model.Plan, res *Result) (int, error)
}

func (o *Orchestrator) steps() []step {
	return []step{
		{model.CategoryIkeGateway, "Saved ike gateways", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategoryIkeGateway, objects(p.Gateways))
		}},
		{model.CategoryTunnelInterface, "Saved tunnel interfaces", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategoryTunnelInterface, objects(p.TunnelInterfaces))
		}},
		{model.CategoryRouterInterface, "Saved tunnel interfaces to virtual router", o.attachRouterInterfaces},
		{model.CategoryZone, "Saved zone", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			if len(p.Zone.Interfaces) == 0 {
				return 0, nil
			}
			return 1, o.Device.Create(ctx, p.Zone)
		}},
		{model.CategoryIpsecTunnel, "Saved IPsec tunnels", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategoryIpsecTunnel, objects(p.IpsecTunnels))
		}},
		{model.CategoryAddressObject, "Saved address objects", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategoryAddressObject, objects(p.Addresses))
		}},
		{model.CategoryAddressGroup, "Saved address group", o.extendAddressGroup},
		{model.CategoryStaticRoute, "Saved static routes", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategoryStaticRoute, objects(p.StaticRoutes))
		}},
		{model.CategorySecurityRule, "Saved security rules", func(ctx context.Context, p *model.Plan, _ *Result) (int, error) {
			return o.push(ctx, model.CategorySecurityRule, objects(p.SecurityRules))
		}},
	}
}

// Apply pushes every category of p in ApplyOrder. Empty categories are
// skipped. The first error aborts; objects already pushed stay in the
// candidate configuration.
func (o *Orchestrator) Apply(ctx context.Context, p *model.Plan) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Created: make(map[model.Category]int)}
	for _, s := range o.steps() {
		n, err := s.run(ctx, p, res)
		if err != nil {
			return res, fmt.Errorf("%s: %w", s.category, err)
		}
		if n == 0 {
			slog.Debug("Nothing to push", "category", s.category)
			continue
		}
		res.Created[s.category] = n
		slog.Info("Pushed category", "category", s.category, "count", n)
		o.progress("%s (%d)", s.done, n)
	}
	return res, nil
}

func (o *Orchestrator) push(ctx context.Context, c model.Category, objs []model.Object) (int, error) {
	if len(objs) == 0 {
		return 0, nil
	}
	if !o.PerItem[c] {
		if err := o.Device.CreateBulk(ctx, c, objs); err != nil {
			return 0, err
		}
		return len(objs), nil
	}
	for i, obj := range objs {
		if err := o.Device.Create(ctx, obj); err != nil {
			return i, fmt.Errorf("%s: %w", obj.EntryName(), err)
		}
	}
	return len(objs), nil
}

// attachRouterInterfaces reads the virtual router, appends the new tunnel
// interfaces and writes it back. Another writer between the two calls is
// not detected.
func (o *Orchestrator) attachRouterInterfaces(ctx context.Context, p *model.Plan, res *Result) (int, error) {
	names := p.InterfaceNames()
	if len(names) == 0 {
		return 0, nil
	}
	vr, err := o.Device.VirtualRouter(ctx, p.Router)
	if err != nil {
		return 0, err
	}
	snap := &model.RouterSnapshot{Before: cloneRouter(*vr)}

	added := 0
	for _, name := range names {
		if slices.Contains(vr.Interfaces, name) {
			slog.Warn("Interface already attached to virtual router", "router", vr.Name, "interface", name)
			continue
		}
		vr.Interfaces = append(vr.Interfaces, name)
		added++
	}
	snap.After = cloneRouter(*vr)
	res.Router = snap

	if added == 0 {
		return 0, nil
	}
	if err := o.Device.UpdateVirtualRouter(ctx, vr); err != nil {
		return 0, err
	}
	return added, nil
}

// extendAddressGroup reads the configured address group, appends the new
// address objects and writes it back. Exactly one group must carry the
// configured name.
func (o *Orchestrator) extendAddressGroup(ctx context.Context, p *model.Plan, res *Result) (int, error) {
	names := p.AddressNames()
	if len(names) == 0 {
		return 0, nil
	}
	groups, err := o.Device.AddressGroups(ctx)
	if err != nil {
		return 0, err
	}

	var match []int
	for i := range groups {
		if groups[i].Name == p.AddressGroup {
			match = append(match, i)
		}
	}
	switch {
	case len(match) == 0:
		return 0, fmt.Errorf("%s: %w", p.AddressGroup, ErrAddressGroupNotFound)
	case len(match) > 1:
		return 0, fmt.Errorf("%s matched %d groups: %w", p.AddressGroup, len(match), ErrAddressGroupAmbiguous)
	}
	g := groups[match[0]]
	if g.Dynamic {
		return 0, fmt.Errorf("%s: %w", g.Name, ErrAddressGroupDynamic)
	}
	snap := &model.GroupSnapshot{Before: cloneGroup(g)}

	added := 0
	for _, name := range names {
		if slices.Contains(g.Static, name) {
			continue
		}
		g.Static = append(g.Static, name)
		added++
	}
	snap.After = cloneGroup(g)
	res.Group = snap

	if added == 0 {
		return 0, nil
	}
	slog.Info("Adding addresses to group", "group", g.Name, "count", added)
	if err := o.Device.UpdateAddressGroup(ctx, &g); err != nil {
		return 0, err
	}
	return added, nil
}

func objects[T model.Object](items []T) []model.Object {
	out := make([]model.Object, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func cloneRouter(vr model.VirtualRouter) model.VirtualRouter {
	vr.Interfaces = slices.Clone(vr.Interfaces)
	return vr
}

func cloneGroup(g model.AddressGroup) model.AddressGroup {
	g.Static = slices.Clone(g.Static)
	return g
}
