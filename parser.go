package ipwry

import (
	"strings"
	"unicode/utf8"
)

// Parser splits raw locale text into country, province, city, county and ISP.
// It is safe for concurrent use; Parse never fails.
type Parser struct {
	dict Dictionary

	// WithOriginal attaches a copy of the raw input to every result.
	WithOriginal bool
}

var defaultParser = NewParser(DefaultDictionary())

// NewParser - factory method for parser. Empty administrative markers are
// replaced by the built-in ones.
func NewParser(dict Dictionary) *Parser {
	def := DefaultDictionary()
	orDefault(&dict.ProvinceMarker, def.ProvinceMarker)
	orDefault(&dict.CityMarker, def.CityMarker)
	orDefault(&dict.CountyMarker, def.CountyMarker)
	orDefault(&dict.DistrictMarker, def.DistrictMarker)
	return &Parser{dict: dict}
}

func orDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// ParseHierarchy parses raw with the built-in dictionary.
func ParseHierarchy(raw RawLocation) Location {
	return defaultParser.Parse(raw)
}

// Parse converts a decoder result into a Location.
func (p *Parser) Parse(raw RawLocation) Location {
	d := &p.dict
	loc := Location{IP: raw.IP}
	if p.WithOriginal {
		orig := raw
		loc.Raw = &orig
	}
	if raw.Country == "" && raw.Area == "" {
		return loc
	}

	country := raw.Country
	if d.NationalPrefix != "" {
		country = strings.TrimPrefix(country, d.NationalPrefix)
	}
	loc.Country = country

	isChina := false
	if parts := strings.Split(country, d.ProvinceMarker); len(parts) > 1 {
		isChina = true
		loc.Province = parts[0] + d.ProvinceMarker
		loc.City, loc.County = p.splitCity(parts[1])
	} else {
		for _, name := range d.Provinces {
			if name == "" || !strings.Contains(country, name) {
				continue
			}
			isChina = true
			loc.Province = name
			if d.isMunicipality(name) {
				rest := strings.Split(country, name)[1]
				rest = strings.TrimPrefix(rest, d.CityMarker)
				loc.City = p.municipalDistrict(rest)
			} else {
				rest := strings.ReplaceAll(country, name, "")
				rest = strings.TrimPrefix(rest, d.CityMarker)
				loc.City, loc.County = p.splitCity(rest)
			}
			break
		}
	}
	if isChina {
		loc.Country = d.NationalName
	}

	loc.Area = loc.Country + loc.Province + loc.City + loc.County + d.AreaSeparator + raw.Area
	loc.ISP = p.isp(loc.Area)
	return loc
}

// splitCity reads "<city>市<county>县" or "<city>市<district>区" from s.
func (p *Parser) splitCity(s string) (city, county string) {
	d := &p.dict
	if !strings.Contains(s, d.CityMarker) {
		return "", ""
	}
	parts := strings.Split(s, d.CityMarker)
	city = parts[0] + d.CityMarker
	tail := parts[1]
	switch {
	case strings.Contains(tail, d.CountyMarker):
		county = strings.Split(tail, d.CountyMarker)[0] + d.CountyMarker
	case strings.Contains(tail, d.DistrictMarker):
		county = strings.Split(tail, d.DistrictMarker)[0] + d.DistrictMarker
	}
	return city, county
}

// municipalDistrict extracts the district of a municipality. Campus names
// ("...校区") and long institutional names are not districts.
func (p *Parser) municipalDistrict(s string) string {
	d := &p.dict
	if !strings.Contains(s, d.DistrictMarker) {
		return ""
	}
	name := strings.Split(s, d.DistrictMarker)[0]
	candidate := name + d.DistrictMarker
	for _, tail := range d.DistrictTails {
		if tail != "" && strings.HasSuffix(candidate, tail) {
			return ""
		}
	}
	if d.MaxDistrictLen > 0 && utf8.RuneCountInString(name) >= d.MaxDistrictLen {
		return ""
	}
	return candidate
}

func (p *Parser) isp(area string) string {
	for _, name := range p.dict.ISPs {
		if name != "" && strings.Contains(area, name) {
			return name
		}
	}
	return ""
}
