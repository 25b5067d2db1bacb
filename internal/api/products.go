package api

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/Sankethhn/Farmlink/internal/imaging"
	"github.com/Sankethhn/Farmlink/internal/model"
	"github.com/Sankethhn/Farmlink/internal/store"
)

// ProductsHandler handles product CRUD endpoints.
type ProductsHandler struct {
	DB       *sql.DB
	MediaDir string
}

type createProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Unit        string  `json:"unit"`
	Organic     bool    `json:"organic"`
	Category    string  `json:"category"`
}

func (req *createProductRequest) validate() error {
	if err := model.ValidateProductName(req.Name); err != nil {
		return err
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if req.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// List handles GET /products. Open to anonymous browsing.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Category:      q.Get("category"),
		AvailableOnly: true,
	}

	if v := q.Get("available_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid available_only")
			return
		}
		filter.AvailableOnly = b
	}
	if v := q.Get("organic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid organic")
			return
		}
		filter.Organic = &b
	}
	if v := q.Get("min_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid min_price")
			return
		}
		filter.MinPrice = &f
	}
	if v := q.Get("max_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid max_price")
			return
		}
		filter.MaxPrice = &f
	}
	filter.Skip, _ = strconv.Atoi(q.Get("skip"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	products, err := store.ListProducts(r.Context(), h.DB, filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Get handles GET /products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := store.GetProduct(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if product == nil {
		jsonError(w, http.StatusNotFound, "product not found")
		return
	}
	jsonResponse(w, http.StatusOK, product)
}

// Create handles POST /products (farmer only).
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	product, err := store.CreateProduct(r.Context(), h.DB, claims.UserID,
		req.Name, req.Description, req.Quantity, req.Price, req.Unit, req.Organic, req.Category, "")
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("product created", "farmer", claims.Email, "product", product.Name, "quantity", product.Quantity)
	jsonResponse(w, http.StatusCreated, product)
}

// CreateWithImage handles POST /products/upload (farmer only). Accepts a
// multipart form with the product fields plus an optional image file,
// which is re-encoded and stored under the media dir with a thumbnail.
func (h *ProductsHandler) CreateWithImage(w http.ResponseWriter, r *http.Request) {
	// Limit to 5 MB total.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	req := createProductRequest{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Unit:        r.FormValue("unit"),
		Category:    r.FormValue("category"),
	}
	req.Quantity, _ = strconv.ParseFloat(r.FormValue("quantity"), 64)
	req.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	req.Organic, _ = strconv.ParseBool(r.FormValue("organic"))

	if err := req.validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	var imageURL string
	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		imageURL, err = h.saveImage(file)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	claims := GetClaims(r.Context())
	product, err := store.CreateProduct(r.Context(), h.DB, claims.UserID,
		req.Name, req.Description, req.Quantity, req.Price, req.Unit, req.Organic, req.Category, imageURL)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("product created", "farmer", claims.Email, "product", product.Name, "image", imageURL != "")
	jsonResponse(w, http.StatusCreated, product)
}

// saveImage processes an uploaded image and writes it plus a thumbnail
// into the media dir under a random name. Returns the public URL.
func (h *ProductsHandler) saveImage(file io.Reader) (string, error) {
	result, err := imaging.Process(file)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(h.MediaDir, name), result.Data, 0644); err != nil {
		return "", fmt.Errorf("saving image: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.MediaDir, "thumb_"+name), result.Thumb, 0644); err != nil {
		return "", fmt.Errorf("saving thumbnail: %w", err)
	}

	return "/media/" + name, nil
}

// Update handles PUT /products/{id} (owning farmer only).
func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var upd model.ProductUpdate
	if err := decodeJSON(r, &upd); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := upd.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	product, err := store.UpdateProduct(r.Context(), h.DB, id, claims.UserID, upd)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id} (owning farmer only). Refused
// with 409 while open orders still reference the product.
func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	claims := GetClaims(r.Context())
	if err := store.DeleteProduct(r.Context(), h.DB, id, claims.UserID); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("product deleted", "farmer", claims.Email, "product_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// FarmerProducts handles GET /farmers/products: the current farmer's own
// listings regardless of availability.
func (h *ProductsHandler) FarmerProducts(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	products, err := store.ListProducts(r.Context(), h.DB, store.ProductFilter{
		FarmerID: claims.UserID,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}
