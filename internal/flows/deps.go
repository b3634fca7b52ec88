package flows

// Deps groups flow dependency sets. The root client builds this once and
// delegates multi-step operations to the matching flow implementation.
type Deps struct {
	SignIn  SignInDeps
	SignOut SignOutDeps
	Expiry  ExpiryDeps
}
