package models

import "strings"

// Package is a priced session offering. Photos is the package limit given to
// sessions booked on it.
type Package struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Photos      int      `json:"photos"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

// Packages is the studio's price list, in display order.
var Packages = []Package{
	{
		Name:        "Mini Session",
		Price:       "$299",
		Photos:      5,
		Description: "Perfect for capturing a few special moments",
		Features: []string{
			"30 minute session",
			"5 professionally edited digital images",
			"Online gallery for viewing",
			"Print release included",
		},
	},
	{
		Name:        "Classic",
		Price:       "$499",
		Photos:      10,
		Description: "Our most popular package for growing families",
		Features: []string{
			"1 hour session",
			"10 professionally edited digital images",
			"Online gallery with selection tools",
			"Print release included",
			"2 outfit changes",
		},
		Popular: true,
	},
	{
		Name:        "Premium",
		Price:       "$799",
		Photos:      20,
		Description: "The complete experience for every milestone",
		Features: []string{
			"2 hour session",
			"20 professionally edited digital images",
			"Priority online gallery access",
			"Print release included",
			"Same-week turnaround",
		},
	},
}

// PackageByName looks a package up case-insensitively.
func PackageByName(name string) (Package, bool) {
	for _, p := range Packages {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Package{}, false
}
