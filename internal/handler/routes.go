package handler

import (
	"net/http"

	"github.com/martiv/eshop-api/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. mediaRoot is the
// blob store's filesystem root, served read-only under /media/ so stored
// image references resolve as URLs.
func RegisterRoutes(
	mux *http.ServeMux,
	categories *service.CategoryService,
	products *service.ProductService,
	auth *service.AuthService,
	limiter *service.RateLimiter,
	mediaRoot string,
	baseURL string,
) {
	categoryHandler := NewCategoryHandler(categories, baseURL)
	productHandler := NewProductHandler(products, baseURL)
	userHandler := NewUserHandler(auth)

	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimit(limiter, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("GET /api/categories", categoryHandler.HandleList)
	mux.HandleFunc("GET /api/categories/{id}", categoryHandler.HandleGet)
	mux.Handle("POST /api/categories", limited(categoryHandler.HandleCreate))
	mux.Handle("PATCH /api/categories/{id}", limited(categoryHandler.HandleUpdate))
	mux.Handle("DELETE /api/categories/{id}", limited(categoryHandler.HandleDelete))

	mux.HandleFunc("GET /api/categories/{id}/products", productHandler.HandleListByCategory)

	mux.HandleFunc("GET /api/products", productHandler.HandleList)
	mux.HandleFunc("GET /api/products/{id}", productHandler.HandleGet)
	mux.Handle("POST /api/products", limited(productHandler.HandleCreate))
	mux.Handle("PATCH /api/products/{id}", limited(productHandler.HandleUpdate))
	mux.Handle("DELETE /api/products/{id}", limited(productHandler.HandleDelete))

	mux.HandleFunc("POST /api/users", userHandler.HandleRegister)
	mux.HandleFunc("GET /api/users/{id}", userHandler.HandleGet)
	mux.Handle("PUT /api/users/{id}", RequireAuth(auth, http.HandlerFunc(userHandler.HandleUpdate)))
	mux.HandleFunc("POST /api/login", userHandler.HandleLogin)

	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaRoot))))
}
