package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth *AuthHandler,
	authMiddleware func(next http.Handler) http.Handler,
	middlewares ...func(next http.Handler) http.Handler,
) http.Handler {
	apiauth := http.NewServeMux()

	apiauth.HandleFunc("POST /register", auth.register)
	apiauth.HandleFunc("POST /login", auth.login)
	apiauth.HandleFunc("POST /logout", auth.logout)
	apiauth.HandleFunc("POST /refresh", auth.refresh)
	apiauth.HandleFunc("POST /forgot-password", auth.forgotPassword)
	apiauth.HandleFunc("POST /reset-password", auth.resetPassword)
	apiauth.Handle("POST /change-password", authMiddleware(http.HandlerFunc(auth.changePassword)))

	root := http.NewServeMux()
	root.Handle("/api/auth/", http.StripPrefix("/api/auth", apiauth))

	return chain(root, middlewares...)
}
