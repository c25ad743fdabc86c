package render

// Theme holds colors for graph and report rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	EdgeInternal string // callee is a corpus function
	EdgeExternal string // callee is outside the corpus
	EntryBorder  string // functions nothing in the corpus calls

	// Report bars.
	BarStack    string
	BarRegister string
	BarUser     string

	ExternalText string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeInternal: "#424242", // dark gray
	EdgeExternal: "#9E9E9E", // gray
	EntryBorder:  "#0B3D91", // NASA blue

	BarStack:    "#00695C", // teal
	BarRegister: "#0B3D91",
	BarUser:     "#FC3D21", // NASA red

	ExternalText: "#9E9E9E",
}
