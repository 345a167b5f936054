package domain

// BootstrapData describes the first administrator seeded into an empty
// store.
type BootstrapData struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
	AdminFullName string
}
