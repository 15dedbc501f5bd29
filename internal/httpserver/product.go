package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
	"storefront/internal/storage"
)

type ProductService interface {
	Create(ctx context.Context, in productsvc.CreateInput, image *storage.Upload) (*domain.Product, error)
	List(ctx context.Context, q productsvc.ListQuery) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, id string, in productsvc.UpdateInput, image *storage.Upload) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

type listProductsQuery struct {
	Size             string `form:"size"`
	Name             string `form:"name"`
	PriceGreaterThan string `form:"priceGreaterThan"`
	PriceLessThan    string `form:"priceLessThan"`
	PriceSort        string `form:"priceSort" binding:"omitempty,oneof=1 -1"`
}

func (a *api) createProduct(c *gin.Context) {
	image, closeImage, err := formUpload(c, "productImage")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid productImage upload")
		return
	}
	defer closeImage()

	freeShipping, err := optionalBool(c, "isFreeShipping")
	if err != nil {
		fail(c, http.StatusBadRequest, "isFreeShipping must be true or false")
		return
	}
	installments, err := optionalInt(c, "installments")
	if err != nil {
		fail(c, http.StatusBadRequest, "installments must be an integer")
		return
	}

	in := productsvc.CreateInput{
		Title:          c.PostForm("title"),
		Description:    c.PostForm("description"),
		Price:          c.PostForm("price"),
		CurrencyID:     c.PostForm("currencyId"),
		CurrencyFormat: c.PostForm("currencyFormat"),
		Style:          c.PostForm("style"),
		AvailableSizes: formList(c, "availableSizes"),
	}
	if freeShipping != nil {
		in.IsFreeShipping = *freeShipping
	}
	if installments != nil {
		in.Installments = *installments
	}

	p, err := a.deps.Products.Create(c.Request.Context(), in, image)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", p)
}

func (a *api) listProducts(c *gin.Context) {
	var q listProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	products, err := a.deps.Products.List(c.Request.Context(), productsvc.ListQuery{
		Size:             q.Size,
		Name:             q.Name,
		PriceGreaterThan: q.PriceGreaterThan,
		PriceLessThan:    q.PriceLessThan,
		PriceSort:        q.PriceSort,
	})
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Products fetched successfully", products)
}

func (a *api) getProduct(c *gin.Context) {
	p, err := a.deps.Products.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product fetched successfully", p)
}

func (a *api) updateProduct(c *gin.Context) {
	image, closeImage, err := formUpload(c, "productImage")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid productImage upload")
		return
	}
	defer closeImage()

	in := productsvc.UpdateInput{
		Title:          optionalForm(c, "title"),
		Description:    optionalForm(c, "description"),
		Price:          optionalForm(c, "price"),
		CurrencyID:     optionalForm(c, "currencyId"),
		CurrencyFormat: optionalForm(c, "currencyFormat"),
		Style:          optionalForm(c, "style"),
		AvailableSizes: formList(c, "availableSizes"),
	}
	if in.IsFreeShipping, err = optionalBool(c, "isFreeShipping"); err != nil {
		fail(c, http.StatusBadRequest, "isFreeShipping must be true or false")
		return
	}
	if in.Installments, err = optionalInt(c, "installments"); err != nil {
		fail(c, http.StatusBadRequest, "installments must be an integer")
		return
	}

	p, err := a.deps.Products.Update(c.Request.Context(), c.Param("productId"), in, image)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", p)
}

func (a *api) deleteProduct(c *gin.Context) {
	if err := a.deps.Products.Delete(c.Request.Context(), c.Param("productId")); err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}
