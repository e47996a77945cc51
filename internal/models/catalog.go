package models

import "sort"

// Region is a top-level geographic grouping
type Region string

const (
	RegionNorthern Region = "NORTHERN"
	RegionCentral  Region = "CENTRAL"
	RegionSouthern Region = "SOUTHERN"
)

// Area belongs to exactly one region
type Area struct {
	Name       string `json:"name"`
	RegionName string `json:"regionName"`
}

// Institute belongs to exactly one area
type Institute struct {
	Name       string `json:"name"`
	AreaName   string `json:"areaName"`
	RegionName string `json:"regionName"`
}

// Profession is a trade offered in an area, restricted to some genders
type Profession struct {
	Name           string   `json:"name"`
	AreaName       string   `json:"areaName"`
	RegionName     string   `json:"regionName"`
	AllowedGenders []Gender `json:"allowedGenders"`
}

// Allows reports whether the profession accepts applicants of gender g
func (p Profession) Allows(g Gender) bool {
	for _, allowed := range p.AllowedGenders {
		if allowed == g {
			return true
		}
	}
	return false
}

type areaNode struct {
	institutes  map[string]struct{}
	professions map[string]Profession
}

// Catalog is an immutable snapshot of the reference hierarchy.
// Lookups are exact-match on the stored names.
type Catalog struct {
	regions map[string]map[string]*areaNode
}

// NewCatalog assembles a snapshot. Entries whose parent is missing, or whose
// region disagrees with their area's region, are dropped.
func NewCatalog(regions []string, areas []Area, institutes []Institute, professions []Profession) *Catalog {
	c := &Catalog{regions: make(map[string]map[string]*areaNode, len(regions))}
	for _, r := range regions {
		c.regions[r] = map[string]*areaNode{}
	}
	for _, a := range areas {
		areasOf, ok := c.regions[a.RegionName]
		if !ok {
			continue
		}
		areasOf[a.Name] = &areaNode{
			institutes:  map[string]struct{}{},
			professions: map[string]Profession{},
		}
	}
	for _, i := range institutes {
		if node := c.area(i.RegionName, i.AreaName); node != nil {
			node.institutes[i.Name] = struct{}{}
		}
	}
	for _, p := range professions {
		if node := c.area(p.RegionName, p.AreaName); node != nil {
			node.professions[p.Name] = p
		}
	}
	return c
}

func (c *Catalog) area(region, area string) *areaNode {
	areasOf, ok := c.regions[region]
	if !ok {
		return nil
	}
	return areasOf[area]
}

// HasRegion reports whether region exists
func (c *Catalog) HasRegion(region string) bool {
	_, ok := c.regions[region]
	return ok
}

// HasArea reports whether area exists under region
func (c *Catalog) HasArea(region, area string) bool {
	return c.area(region, area) != nil
}

// HasInstitute reports whether institute exists under (region, area)
func (c *Catalog) HasInstitute(region, area, institute string) bool {
	node := c.area(region, area)
	if node == nil {
		return false
	}
	_, ok := node.institutes[institute]
	return ok
}

// Profession looks up a profession offered under (region, area)
func (c *Catalog) Profession(region, area, name string) (Profession, bool) {
	node := c.area(region, area)
	if node == nil {
		return Profession{}, false
	}
	p, ok := node.professions[name]
	return p, ok
}

// Regions returns region names sorted ascending
func (c *Catalog) Regions() []string {
	out := make([]string, 0, len(c.regions))
	for r := range c.regions {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Areas returns the area names of region sorted ascending
func (c *Catalog) Areas(region string) []string {
	out := []string{}
	for a := range c.regions[region] {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Institutes returns the institute names of (region, area) sorted ascending
func (c *Catalog) Institutes(region, area string) []string {
	out := []string{}
	if node := c.area(region, area); node != nil {
		for i := range node.institutes {
			out = append(out, i)
		}
	}
	sort.Strings(out)
	return out
}

// Professions returns professions of (region, area) open to gender, sorted ascending
func (c *Catalog) Professions(region, area string, gender Gender) []string {
	out := []string{}
	if node := c.area(region, area); node != nil {
		for name, p := range node.professions {
			if p.Allows(gender) {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
