package render

// Theme holds colors for call graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string
	EntryColor string // border of entry-point nodes

	// Edge colors by provenance category.
	EdgeDirect     string // bl
	EdgeTOC        string // bctrl/blrl through a TOC-loaded pointer
	EdgeRegister   string // bctrl/blrl through a plain register
	EdgeUnresolved string // indirect call with no provenance

	StubFill string // synthesised sub_ nodes
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",
	EntryColor: "#0B3D91", // NASA blue

	EdgeDirect:     "#424242", // dark gray
	EdgeTOC:        "#00695C", // teal
	EdgeRegister:   "#E65100", // deep orange
	EdgeUnresolved: "#FC3D21", // NASA red

	StubFill: "#ECEFF1", // blue-gray 50
}
