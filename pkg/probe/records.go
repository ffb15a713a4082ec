package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Board keys in pyocd's "json --probes" output.
const (
	BoardInfoKey        = "info"
	BoardNameKey        = "board_name"
	BoardVendorNameKey  = "vendor_name"
	BoardProductNameKey = "product_name"
	BoardTargetKey      = "target"
	BoardUniqueIDKey    = "unique_id"
)

// Target keys in pyocd's "json --targets" output.
const (
	TargetNameKey       = "name"
	TargetVendorKey     = "vendor"
	TargetPartNumberKey = "part_number"
	TargetFamiliesKey   = "part_families"
	TargetSVDPathKey    = "svd_path"
)

// Board describes a connected debug probe and the board it sits on.
type Board struct {
	Name        string `json:"board_name,omitempty" yaml:"board_name,omitempty"`
	VendorName  string `json:"vendor_name,omitempty" yaml:"vendor_name,omitempty"`
	ProductName string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	TargetName  string `json:"target,omitempty" yaml:"target,omitempty"`
	Description string `json:"info,omitempty" yaml:"info,omitempty"`
	UniqueID    string `json:"unique_id,omitempty" yaml:"unique_id,omitempty"`
}

func (b Board) String() string {
	return fmt.Sprintf("<Board: %s [%s] %s>", b.Name, b.TargetName, b.UniqueID)
}

// Target describes a target device pyocd knows how to debug.
type Target struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Vendor     string   `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	PartNumber string   `json:"part_number,omitempty" yaml:"part_number,omitempty"`
	Families   []string `json:"part_families" yaml:"part_families"`
	SVDPath    string   `json:"svd_path,omitempty" yaml:"svd_path,omitempty"`
}

func (t Target) String() string {
	return fmt.Sprintf("<Target: %s [%s]>", t.Name, t.PartNumber)
}

// BoardFromJSON maps one element of the "boards" array. Keys are matched
// exactly; a non-string value in a known field fails the element and null
// leaves the field empty.
func BoardFromJSON(raw json.RawMessage) (Board, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Board{}, err
	}
	var b Board
	for _, f := range []struct {
		key string
		dst *string
	}{
		{BoardInfoKey, &b.Description},
		{BoardNameKey, &b.Name},
		{BoardVendorNameKey, &b.VendorName},
		{BoardProductNameKey, &b.ProductName},
		{BoardTargetKey, &b.TargetName},
		{BoardUniqueIDKey, &b.UniqueID},
	} {
		if err := field(obj, f.key, f.dst); err != nil {
			return Board{}, err
		}
	}
	return b, nil
}

// TargetFromJSON maps one element of the "targets" array.
func TargetFromJSON(raw json.RawMessage) (Target, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return Target{}, err
	}
	var t Target
	for _, f := range []struct {
		key string
		dst *string
	}{
		{TargetNameKey, &t.Name},
		{TargetVendorKey, &t.Vendor},
		{TargetPartNumberKey, &t.PartNumber},
		{TargetSVDPathKey, &t.SVDPath},
	} {
		if err := field(obj, f.key, f.dst); err != nil {
			return Target{}, err
		}
	}
	if err := field(obj, TargetFamiliesKey, &t.Families); err != nil {
		return Target{}, err
	}
	if t.Families == nil {
		t.Families = []string{}
	}
	return t, nil
}

// decodeObject requires raw to be a JSON object; null and scalars are rejected.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("element is not an object: %.40s", trimmed)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// field decodes obj[key] into dst. An absent key leaves dst untouched.
func field(obj map[string]json.RawMessage, key string, dst any) error {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}
