// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

// AllName is the display name of the synthetic "every category" filter.
const AllName = "すべて"

// Default is a built-in category known without a database round trip.
type Default struct {
	Slug string
	Name string
}

// defaults is the static slug/display-name table. Both columns must stay
// unique so the mapping round-trips.
var defaults = []Default{
	{Slug: "market_analysis", Name: "市場分析"},
	{Slug: "regulation", Name: "規制・法律"},
	{Slug: "app_store_news", Name: "アプリストア動向"},
	{Slug: "payment", Name: "決済・手数料"},
	{Slug: "developer", Name: "開発者向け"},
	{Slug: "global", Name: "海外動向"},
	{Slug: "interview", Name: "インタビュー"},
	{Slug: "case_study", Name: "事例研究"},
}

var (
	defaultNameBySlug = make(map[string]string, len(defaults))
	defaultSlugByName = make(map[string]string, len(defaults))
)

func init() {
	for _, d := range defaults {
		defaultNameBySlug[d.Slug] = d.Name
		defaultSlugByName[d.Name] = d.Slug
	}
}

// Defaults returns a copy of the built-in categories in display order.
func Defaults() []Default {
	out := make([]Default, len(defaults))
	copy(out, defaults)
	return out
}
