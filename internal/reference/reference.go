// Package reference loads the static category taxonomy and regional average
// tables. The data is read once at startup and never mutated afterwards.
package reference

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"wedplan/internal/core"
)

//go:embed defaults.yaml
var defaultYAML []byte

type fileFormat struct {
	Categories []categoryEntry `yaml:"categories"`
	Regions    []regionEntry   `yaml:"regions"`
}

type categoryEntry struct {
	Key        string   `yaml:"key"`
	Label      string   `yaml:"label"`
	Icon       string   `yaml:"icon"`
	SubItems   []string `yaml:"sub_items"`
	SavingTips []string `yaml:"saving_tips"`
}

type regionEntry struct {
	Key        string           `yaml:"key"`
	Label      string           `yaml:"label"`
	Total      int64            `yaml:"total"`
	ByCategory map[string]int64 `yaml:"by_category"`
}

// Data is the immutable reference table set.
type Data struct {
	categories map[core.Category]core.CategoryInfo
	regions    map[core.Region]core.RegionalAverage
	regionKeys []core.Region
}

var defaultData = mustParse(defaultYAML)

// Default returns the embedded reference data.
func Default() *Data {
	return defaultData
}

// Load reads reference data from path. An empty path yields the embedded defaults.
func Load(path string) (*Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	data, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse reference data %s: %w", path, err)
	}
	return data, nil
}

// Parse decodes and validates a YAML reference document.
func Parse(raw []byte) (*Data, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	d := &Data{
		categories: make(map[core.Category]core.CategoryInfo, len(f.Categories)),
		regions:    make(map[core.Region]core.RegionalAverage, len(f.Regions)),
	}
	for _, ce := range f.Categories {
		c, err := core.ParseCategory(ce.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := d.categories[c]; dup {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		d.categories[c] = core.CategoryInfo{
			Category:   c,
			Label:      ce.Label,
			Icon:       ce.Icon,
			SubItems:   ce.SubItems,
			SavingTips: ce.SavingTips,
		}
	}
	for _, c := range core.AllCategories() {
		if _, ok := d.categories[c]; !ok {
			return nil, fmt.Errorf("category %q missing from taxonomy", c)
		}
	}

	for _, re := range f.Regions {
		key := core.Region(strings.ToLower(strings.TrimSpace(re.Key)))
		if key == "" {
			return nil, fmt.Errorf("region with empty key")
		}
		if _, dup := d.regions[key]; dup {
			return nil, fmt.Errorf("duplicate region %q", key)
		}
		avg := core.RegionalAverage{
			Region:     key,
			Label:      re.Label,
			Total:      core.Money(re.Total),
			ByCategory: make(map[core.Category]core.Money, len(re.ByCategory)),
		}
		for k, v := range re.ByCategory {
			c, err := core.ParseCategory(k)
			if err != nil {
				return nil, fmt.Errorf("region %q: %w", key, err)
			}
			if v < 0 {
				return nil, fmt.Errorf("region %q category %q: %w", key, c, core.ErrNegativeAmount)
			}
			avg.ByCategory[c] = core.Money(v)
		}
		d.regions[key] = avg
		d.regionKeys = append(d.regionKeys, key)
	}
	sort.Slice(d.regionKeys, func(i, j int) bool { return d.regionKeys[i] < d.regionKeys[j] })
	return d, nil
}

func mustParse(raw []byte) *Data {
	d, err := Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("embedded reference data: %v", err))
	}
	return d
}

// Category returns the taxonomy entry for c.
func (d *Data) Category(c core.Category) (core.CategoryInfo, bool) {
	info, ok := d.categories[c]
	return info, ok
}

// Label returns the display label for c, falling back to the key.
func (d *Data) Label(c core.Category) string {
	if info, ok := d.categories[c]; ok && info.Label != "" {
		return info.Label
	}
	return string(c)
}

// Categories returns the taxonomy in display order.
func (d *Data) Categories() []core.CategoryInfo {
	out := make([]core.CategoryInfo, 0, len(d.categories))
	for _, c := range core.AllCategories() {
		out = append(out, d.categories[c])
	}
	return out
}

// Regional returns the averages for region. Unknown regions return a zero
// average and false; callers treat that as "no comparison available".
func (d *Data) Regional(region core.Region) (core.RegionalAverage, bool) {
	avg, ok := d.regions[core.Region(strings.ToLower(string(region)))]
	if !ok {
		return core.RegionalAverage{Region: region}, false
	}
	return avg, true
}

// Regions returns every region sorted by key.
func (d *Data) Regions() []core.RegionalAverage {
	out := make([]core.RegionalAverage, 0, len(d.regionKeys))
	for _, k := range d.regionKeys {
		out = append(out, d.regions[k])
	}
	return out
}
