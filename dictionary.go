package ipwry

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Dictionary holds the ordered tables that drive Parser. Order matters:
// the first matching entry wins.
type Dictionary struct {
	NationalPrefix string `toml:"national_prefix"` // stripped from raw country text
	NationalName   string `toml:"national_name"`   // canonical country of parsed locations

	ProvinceMarker string `toml:"province_marker"`
	CityMarker     string `toml:"city_marker"`
	CountyMarker   string `toml:"county_marker"`
	DistrictMarker string `toml:"district_marker"`

	Provinces      []string `toml:"provinces"`
	Municipalities []string `toml:"municipalities"`
	DistrictTails  []string `toml:"district_blacklist_tails"` // campus suffixes, never districts
	MaxDistrictLen int      `toml:"max_district_len"`         // in runes, exclusive
	ISPs           []string `toml:"isps"`
	AreaSeparator  string   `toml:"area_separator"`
}

// DefaultDictionary returns the built-in tables.
func DefaultDictionary() Dictionary {
	return Dictionary{
		NationalPrefix: "中国",
		NationalName:   "中国",
		ProvinceMarker: "省",
		CityMarker:     "市",
		CountyMarker:   "县",
		DistrictMarker: "区",
		Provinces: []string{
			"北京", "天津", "重庆", "上海",
			"河北", "山西", "辽宁", "吉林", "黑龙江", "江苏", "浙江", "安徽",
			"福建", "江西", "山东", "河南", "湖北", "湖南", "广东", "海南",
			"四川", "贵州", "云南", "陕西", "甘肃", "青海", "台湾",
			"内蒙古", "广西", "宁夏", "新疆", "西藏", "香港", "澳门",
		},
		Municipalities: []string{"北京", "天津", "重庆", "上海"},
		DistrictTails:  []string{"校区", "学区"},
		MaxDistrictLen: 5,
		ISPs:           []string{"联通", "移动", "铁通", "电信", "长城", "聚友"},
		AreaSeparator:  " ",
	}
}

// LoadDictionary reads tables from a TOML file. Keys absent from the file
// keep their default values.
func LoadDictionary(filename string) (Dictionary, error) {
	d := DefaultDictionary()
	if _, err := toml.DecodeFile(filename, &d); err != nil {
		return Dictionary{}, fmt.Errorf("could not load dictionary from %q: %w", filename, err)
	}
	if d.ProvinceMarker == "" || d.CityMarker == "" || d.CountyMarker == "" || d.DistrictMarker == "" {
		return Dictionary{}, fmt.Errorf("dictionary %q: administrative markers must not be empty", filename)
	}
	return d, nil
}

func (d *Dictionary) isMunicipality(name string) bool {
	for _, m := range d.Municipalities {
		if m == name {
			return true
		}
	}
	return false
}
