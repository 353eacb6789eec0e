package metafits

// VisPol is one of the four visibility polarisation products.
type VisPol struct {
	Name string
}

// buildVisPols lists the products in the order both correlators emit them.
func buildVisPols() []VisPol {
	return []VisPol{ { "XX" }, { "XY" }, { "YX" }, { "YY" } }
}
