package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"vpn-provisioner/internal/model"
)

// APIKeyEnv overrides api_key.key when set.
const APIKeyEnv = "PANOS_API_KEY"

const DefaultVsys = "vsys1"

var ErrMissingField = errors.New("missing required field")

// required lists, per top-level group, the keys that must be present.
// Groups are checked in this order so error messages are stable.
var required = []struct {
	group string
	keys  []string
}{
	{"firewalls", []string{"fw", "fw_ha"}},
	{"api_key", nil},
	{"router_name", []string{"name"}},
	{"ike_gateway", []string{
		"version", "peer_ip_type", "interface", "local_ip_address_type",
		"local_ip_address", "pre_shared_key", "peer_id_type",
		"enable_passive_mode", "enable_nat_traversal", "enable_fragmentation",
		"ikev1_exchange_mode", "ikev1_crypto_profile",
		"enable_dead_peer_detection", "ikev2_crypto_profile",
	}},
	{"ipsec_tunnel", []string{"type", "ak_ipsec_crypto_profile", "enable_tunnel_monitor"}},
	{"address_object", []string{"type"}},
	{"static_route", []string{"nexthop_type", "metric"}},
	{"security_rule", []string{
		"fromzone", "tozone", "source", "source_user", "hip_profiles",
		"application", "service", "category", "action", "log_setting",
		"virus", "spyware", "vulnerability", "wildfire_analysis",
	}},
	{"zone", []string{"name", "mode"}},
	{"address_group", []string{"name"}},
}

// Load reads the TOML settings file at path and checks that every
// required group and key is present. Required values are never defaulted.
func Load(path string) (*model.Settings, error) {
	var s model.Settings
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}

	for _, r := range required {
		if !md.IsDefined(r.group) {
			return nil, fmt.Errorf("group [%s]: %w", r.group, ErrMissingField)
		}
		for _, k := range r.keys {
			if !md.IsDefined(r.group, k) {
				return nil, fmt.Errorf("%s.%s: %w", r.group, k, ErrMissingField)
			}
		}
	}

	for _, k := range md.Undecoded() {
		slog.Warn("Ignoring unknown settings key", "key", k.String())
	}

	if v := os.Getenv(APIKeyEnv); v != "" {
		s.APIKey.Key = v
	}
	if s.APIKey.Key == "" {
		return nil, fmt.Errorf("api_key.key (or %s): %w", APIKeyEnv, ErrMissingField)
	}

	if s.Firewalls.Vsys == "" {
		s.Firewalls.Vsys = DefaultVsys
	}
	if !md.IsDefined("apply", "per_item") {
		s.Apply.PerItem = []string{string(model.CategoryStaticRoute)}
	}
	if _, err := PerItem(&s); err != nil {
		return nil, err
	}

	return &s, nil
}

// PerItem returns the set of categories that must be created one object
// per device call.
func PerItem(s *model.Settings) (map[model.Category]bool, error) {
	out := make(map[model.Category]bool, len(s.Apply.PerItem))
	for _, name := range s.Apply.PerItem {
		c, err := model.ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("apply.per_item: %w", err)
		}
		out[c] = true
	}
	return out, nil
}

// LoadEnv loads variables from a dotenv file without overriding ones
// already set. A missing file is only an error when mustExist is true.
func LoadEnv(path string, mustExist bool) error {
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("Loaded environment file", "path", path)
		return nil
	}
	if !mustExist && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load environment file %s: %w", path, err)
}
