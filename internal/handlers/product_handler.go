package handlers

import (
	"fmt"
	"net/url"
	"strconv"

	"inventory/internal/models"
	"inventory/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.InventoryService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.InventoryService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	// Fixed segments first so they are not captured by /:id.
	productRoutes.Get("/price", h.HandleGetProductsByPriceRange)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/name/:name", h.HandleGetProductByName)
	productRoutes.Get("/category/:category", h.HandleGetProductsByCategory)
	productRoutes.Get("/stock/:stock", h.HandleGetProductsByStock)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	result, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !result.Found {
		return productNotFound(id)
	}
	return c.JSON(result.Product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var input models.Product
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	created, err := h.service.AddProduct(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleUpdateProduct replaces all mutable fields of an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var input models.Product
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.service.UpdateProduct(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	if !result.Found {
		return productNotFound(id)
	}
	return c.JSON(result.Product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	outcome, err := h.service.DeleteProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	if outcome != services.Deleted {
		return productNotFound(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetProductByName retrieves the product with exactly the given name.
func (h *ProductHandler) HandleGetProductByName(c *fiber.Ctx) error {
	name, err := pathParam(c, "name")
	if err != nil {
		return err
	}
	result, err := h.service.FindByName(c.UserContext(), name)
	if err != nil {
		return err
	}
	if !result.Found {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Product with name %s not found", name))
	}
	return c.JSON(result.Product)
}

// HandleGetProductsByCategory retrieves the products in a category.
func (h *ProductHandler) HandleGetProductsByCategory(c *fiber.Ctx) error {
	category, err := pathParam(c, "category")
	if err != nil {
		return err
	}
	products, err := h.service.FindByCategory(c.UserContext(), category)
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetProductsByStock retrieves the products with stock at or below the given level.
func (h *ProductHandler) HandleGetProductsByStock(c *fiber.Ctx) error {
	stock, err := strconv.Atoi(c.Params("stock"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Stock must be an integer")
	}
	products, err := h.service.FindByStockLessThanEqual(c.UserContext(), stock)
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleGetProductsByPriceRange retrieves the products priced within [minPrice, maxPrice].
func (h *ProductHandler) HandleGetProductsByPriceRange(c *fiber.Ctx) error {
	minPrice, err := decimalQuery(c, "minPrice")
	if err != nil {
		return err
	}
	maxPrice, err := decimalQuery(c, "maxPrice")
	if err != nil {
		return err
	}
	products, err := h.service.FindByPriceBetween(c.UserContext(), minPrice, maxPrice)
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// HandleSearchProducts retrieves the products whose name contains the keyword, ignoring case.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	keyword := c.Query("keyword")
	if keyword == "" && !c.Context().QueryArgs().Has("keyword") {
		return fiber.NewError(fiber.StatusBadRequest, "Required parameter 'keyword' is not present")
	}
	products, err := h.service.FindByNameContainingIgnoreCase(c.UserContext(), keyword)
	if err != nil {
		return err
	}
	return c.JSON(products)
}

// productID parses the :id path segment. Negative ids cannot exist and are
// reported as not found.
func productID(c *fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid product ID %q", raw))
	}
	if id < 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Product with ID %s not found", raw))
	}
	return uint(id), nil
}

func pathParam(c *fiber.Ctx, key string) (string, error) {
	value, err := url.PathUnescape(c.Params(key))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s", key))
	}
	return value, nil
}

func decimalQuery(c *fiber.Ctx, key string) (decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return decimal.Decimal{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Required parameter '%s' is not present", key))
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Parameter '%s' must be a number", key))
	}
	// Bounds are compared against numeric(12,2), so nothing wider is accepted.
	if !models.PriceWithinPrecision(value) {
		return decimal.Decimal{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Parameter '%s' must have at most 10 digits and 2 decimal places", key))
	}
	return value, nil
}

func productNotFound(id uint) error {
	return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
}
