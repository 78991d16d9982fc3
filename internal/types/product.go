package types

// Missing is the placeholder written for a sub-field that could not be
// extracted from a product container. Absent fields degrade to this value
// instead of failing the record.
const Missing = "N/A"

// Product is a single extracted listing entry. Every field is always
// populated: either with trimmed text from the page or with Missing.
type Product struct {
	Name   string `json:"name"   bson:"name"`
	Price  string `json:"price"  bson:"price"`
	Rating string `json:"rating" bson:"rating"`
}

// Header returns the CSV column names, in row order.
func Header() []string {
	return []string{"Name", "Price", "Rating"}
}

// Row returns the product as a CSV row matching Header order.
func (p Product) Row() []string {
	return []string{p.Name, p.Price, p.Rating}
}

// Complete reports whether every field carries extracted text rather than
// the Missing placeholder.
func (p Product) Complete() bool {
	return p.Name != Missing && p.Price != Missing && p.Rating != Missing
}
