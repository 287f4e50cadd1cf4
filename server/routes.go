package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the full HTTP surface of the daemon.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(s.metricsMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "Application is Running")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, "Application is Running")
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.RegisterHandler)
			r.Post("/login", s.LoginHandler)
			r.Get("/me", s.MeHandler)
			r.Post("/forgot_password", s.ForgotPasswordHandler)
			r.Post("/reset_password", s.ResetPasswordHandler)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.ListProductsHandler)
			r.Get("/brands", s.ListBrandsHandler)
			r.Get("/{id}", s.GetProductHandler)
			r.Put("/{id}", s.UpdateProductHandler)
			r.Delete("/{id}", s.DeleteProductHandler)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.ListCustomersHandler)
			r.Post("/gst", s.ValidateGSTHandler)
			r.Get("/{id}", s.GetCustomerHandler)
			r.Put("/{id}", s.UpdateCustomerHandler)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.CreateOrderHandler)
			r.Get("/", s.ListOrdersHandler)
			r.Post("/clear", s.ClearEmptyOrdersHandler)
			r.Get("/{id}", s.GetOrderHandler)
			r.Put("/{id}", s.UpdateOrderHandler)
			r.Delete("/{id}", s.DeleteOrderHandler)
			r.Post("/{id}/estimate", s.CreateEstimateHandler)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.ListOverdueInvoicesHandler)
			r.Get("/{id}", s.GetInvoiceHandler)
			r.Post("/{invoiceNumber}/notes", s.AddInvoiceNoteHandler)
		})

		r.Route("/zoho", func(r chi.Router) {
			r.Post("/sync/products", s.SyncProductsHandler)
			r.Post("/sync/invoices", s.SyncInvoicesHandler)

			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/item", s.ItemWebhookHandler)
				r.Post("/invoice", s.InvoiceWebhookHandler)
				r.Post("/estimate", s.EstimateWebhookHandler)
			})
		})

		r.Route("/hooks", func(r chi.Router) {
			r.Get("/categories", s.ListHookCategoriesHandler)
			r.Post("/", s.CreateShopHookHandler)
			r.Get("/", s.ListShopHooksHandler)
			r.Get("/{id}", s.GetShopHookHandler)
			r.Put("/{id}", s.UpdateShopHookHandler)
		})

		r.Route("/daily_visits", func(r chi.Router) {
			r.Get("/", s.ListDailyVisitsHandler)
			r.Post("/", s.CreateDailyVisitHandler)
			r.Get("/{id}", s.GetDailyVisitHandler)
			r.Put("/{id}", s.UpdateDailyVisitHandler)
		})

		r.Get("/attendance/in_and_out", s.AttendanceSwipeHandler)

		r.Get("/trainings", s.ListTrainingsHandler)
		r.Get("/announcements", s.ListAnnouncementsHandler)
		r.Get("/catalogues", s.ListCataloguesHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/stats", s.AdminStatsHandler)
			r.Get("/users", s.AdminListUsersHandler)
			r.Post("/users", s.AdminCreateUserHandler)
			r.Put("/users/{id}", s.AdminUpdateUserHandler)
		})
	})

	// Unknown routes bounce back to the root instead of 404ing.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
