package enums

// Backend resource collections, relative to the /v1 base path.
const (
	UserResource    = "users"
	ProductResource = "products"
	LicenseResource = "licenses"
)
