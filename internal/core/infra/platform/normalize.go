package platform

import (
	"image"
	"math"
	"strings"
)

// roleAliases maps raw platform role strings to the canonical
// upper-cased-first forms shared by every adapter. Keys are lower-cased
// before lookup.
var roleAliases = map[string]string{
	// Windows UIA ControlType names.
	"button":       "Button",
	"checkbox":     "CheckBox",
	"combobox":     "ComboBox",
	"edit":         "Edit",
	"hyperlink":    "Hyperlink",
	"image":        "Image",
	"listitem":     "ListItem",
	"list":         "List",
	"menu":         "Menu",
	"menubar":      "MenuBar",
	"menuitem":     "MenuItem",
	"progressbar":  "ProgressBar",
	"radiobutton":  "RadioButton",
	"scrollbar":    "ScrollBar",
	"slider":       "Slider",
	"spinner":      "Spinner",
	"statusbar":    "StatusBar",
	"tab":          "Tab",
	"tabitem":      "TabItem",
	"text":         "Text",
	"toolbar":      "ToolBar",
	"tooltip":      "ToolTip",
	"tree":         "Tree",
	"treeitem":     "TreeItem",
	"custom":       "Custom",
	"group":        "Group",
	"thumb":        "Thumb",
	"datagrid":     "DataGrid",
	"dataitem":     "DataItem",
	"document":     "Document",
	"splitbutton":  "SplitButton",
	"window":       "Window",
	"pane":         "Pane",
	"header":       "Header",
	"headeritem":   "HeaderItem",
	"table":        "Table",
	"titlebar":     "TitleBar",
	"separator":    "Separator",
	"semanticzoom": "SemanticZoom",
	"appbar":       "AppBar",

	// macOS AX roles.
	"axbutton":      "Button",
	"axcheckbox":    "CheckBox",
	"axcombobox":    "ComboBox",
	"axtextfield":   "Edit",
	"axtextarea":    "Edit",
	"axlink":        "Hyperlink",
	"aximage":       "Image",
	"axstatictext":  "Text",
	"axwindow":      "Window",
	"axsheet":       "Pane",
	"axgroup":       "Group",
	"axlist":        "List",
	"axmenu":        "Menu",
	"axmenubar":     "MenuBar",
	"axmenuitem":    "MenuItem",
	"axradiobutton": "RadioButton",
	"axslider":      "Slider",
	"axtabgroup":    "Tab",
	"axtoolbar":     "ToolBar",
	"axapplication": "Application",
	"axscrollarea":  "Pane",
	"axwebarea":     "Document",
	"axoutline":     "Tree",
	"axrow":         "TreeItem",
	"axtable":       "Table",
	"axcell":        "DataItem",
	"axpopupbutton": "ComboBox",
	"axswitch":      "Switch",

	// Linux AT-SPI role names.
	"push button":         "Button",
	"toggle button":       "ToggleButton",
	"check box":           "CheckBox",
	"combo box":           "ComboBox",
	"radio button":        "RadioButton",
	"entry":               "Edit",
	"password text":       "Edit",
	"link":                "Hyperlink",
	"label":               "Text",
	"frame":               "Window",
	"dialog":              "Window",
	"panel":               "Pane",
	"filler":              "Group",
	"menu bar":            "MenuBar",
	"menu item":           "MenuItem",
	"page tab":            "TabItem",
	"page tab list":       "Tab",
	"scroll bar":          "ScrollBar",
	"scroll pane":         "Pane",
	"tool bar":            "ToolBar",
	"tree table":          "Tree",
	"table cell":          "DataItem",
	"document web":        "Document",
	"document frame":      "Document",
	"application":         "Application",
	"desktop frame":       "Desktop",
	"status bar":          "StatusBar",
	"list item":           "ListItem",
	"table column header": "HeaderItem",
}

// NormalizeRole canonicalizes a raw platform role string. Unknown roles are
// title-cased on a best-effort basis so selectors can still target them.
func NormalizeRole(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown"
	}

	if canonical, ok := roleAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}

	// ControlType.Button / AXButton styles not in the table: strip the
	// prefix and upper-case the first letter.
	if dot := strings.LastIndexByte(trimmed, '.'); dot >= 0 {
		trimmed = trimmed[dot+1:]
	}

	if canonical, ok := roleAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}

	return strings.ToUpper(trimmed[:1]) + trimmed[1:]
}

// NormalizeName trims the accessibility label.
func NormalizeName(raw string) string {
	return strings.TrimSpace(raw)
}

// ScaleBounds converts physical-pixel bounds into logical screen pixels.
// DPI scaling is applied exactly once, here, at the adapter boundary.
func ScaleBounds(raw image.Rectangle, scale float64) image.Rectangle {
	if scale == 0 || scale == 1 {
		return raw
	}

	return image.Rect(
		int(math.Round(float64(raw.Min.X)/scale)),
		int(math.Round(float64(raw.Min.Y)/scale)),
		int(math.Round(float64(raw.Max.X)/scale)),
		int(math.Round(float64(raw.Max.Y)/scale)),
	)
}
