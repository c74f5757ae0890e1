package simplecms

import "sort"

// Icon is the symbolic name of a category icon.
type Icon string

// DefaultIcon is preselected for new categories.
const DefaultIcon Icon = "Tag"

// iconGlyphs maps every accepted icon name to the glyph identifier a
// renderer uses to draw it. Names outside this table are rejected when a
// category is saved.
var iconGlyphs = map[Icon]string{
	"Lightbulb":     "lightbulb",
	"Rocket":        "rocket",
	"RefreshCw":     "refresh-cw",
	"Tag":           "tag",
	"ExternalLink":  "external-link",
	"Bookmark":      "bookmark",
	"Book":          "book",
	"FileText":      "file-text",
	"Image":         "image",
	"Video":         "video",
	"Music":         "music",
	"Code":          "code",
	"Terminal":      "terminal",
	"Globe":         "globe",
	"Map":           "map",
	"Compass":       "compass",
	"Award":         "award",
	"Star":          "star",
	"Heart":         "heart",
	"Users":         "users",
	"UserPlus":      "user-plus",
	"Briefcase":     "briefcase",
	"Building":      "building",
	"Home":          "home",
	"ShoppingBag":   "shopping-bag",
	"Gift":          "gift",
	"Calendar":      "calendar",
	"Clock":         "clock",
	"Bell":          "bell",
	"MessageCircle": "message-circle",
	"Mail":          "mail",
	"Phone":         "phone",
	"Smartphone":    "smartphone",
	"Laptop":        "laptop",
	"Monitor":       "monitor",
	"Camera":        "camera",
	"Aperture":      "aperture",
	"Palette":       "palette",
	"PenTool":       "pen-tool",
}

// Valid reports whether the icon belongs to the enumerated set.
func (i Icon) Valid() bool {
	_, ok := iconGlyphs[i]
	return ok
}

// Glyph returns the renderer glyph for the icon, or "" if it is unknown.
func (i Icon) Glyph() string {
	return iconGlyphs[i]
}

// Icons returns the accepted icon names in lexical order.
func Icons() []Icon {
	icons := make([]Icon, 0, len(iconGlyphs))
	for icon := range iconGlyphs {
		icons = append(icons, icon)
	}
	sort.Slice(icons, func(i, j int) bool { return icons[i] < icons[j] })
	return icons
}
