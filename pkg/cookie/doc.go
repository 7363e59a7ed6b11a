// Package cookie reads and writes plain, signed and encrypted cookies and
// keeps a list of flash messages in an encrypted cookie.
//
//	m, err := cookie.New(
//		cookie.WithSecret(os.Getenv("SOCIAL_COOKIE_SECRET")),
//		cookie.WithSecure(true),
//	)
//
// Signed cookies carry an HMAC-SHA256 over the cookie name and value.
// Encrypted cookies use AES-256-GCM with the cookie name as additional data,
// so neither can be replayed under another name. Both need a secret of at
// least MinSecretLength bytes; without one they return ErrNoSecret.
//
// # Flash messages
//
// AddFlash appends a message to the list kept under a key; Flashes returns
// the list and deletes the cookie:
//
//	_ = m.AddFlash(w, r, "social", cookie.Flash{Category: cookie.CategorySuccess, Message: "Connection established to GitHub"})
//
//	// next request
//	flashes, err := m.Flashes(w, r, "social")
package cookie
