package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
	"storefront/internal/storage"
)

type UserService interface {
	Register(ctx context.Context, in usersvc.RegisterInput, image *storage.Upload) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usersvc.Session, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in usersvc.UpdateInput, image *storage.Upload) (*domain.User, error)
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// formAddress decodes the JSON-encoded address field. Nil means absent.
func formAddress(c *gin.Context) (*domain.UserAddress, bool) {
	raw, ok := c.GetPostForm("address")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var addr domain.UserAddress
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		return nil, false
	}
	return &addr, true
}

func (a *api) register(c *gin.Context) {
	image, closeImage, err := formUpload(c, "profileImage")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid profileImage upload")
		return
	}
	defer closeImage()

	addr, ok := formAddress(c)
	if !ok {
		fail(c, http.StatusBadRequest, "address must be a JSON object")
		return
	}
	u, err := a.deps.Users.Register(c.Request.Context(), usersvc.RegisterInput{
		FName:    c.PostForm("fname"),
		LName:    c.PostForm("lname"),
		Email:    c.PostForm("email"),
		Phone:    c.PostForm("phone"),
		Password: c.PostForm("password"),
		Address:  addr,
	}, image)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusCreated, "User created successfully", u)
}

func (a *api) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	sess, err := a.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	c.Header("x-api-key", sess.Token)
	respond(c, http.StatusOK, "User logged in successfully", sess)
}

func (a *api) getProfile(c *gin.Context) {
	u, err := a.deps.Users.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "User profile details", u)
}

func (a *api) updateProfile(c *gin.Context) {
	image, closeImage, err := formUpload(c, "profileImage")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid profileImage upload")
		return
	}
	defer closeImage()

	addr, ok := formAddress(c)
	if !ok {
		fail(c, http.StatusBadRequest, "address must be a JSON object")
		return
	}
	u, err := a.deps.Users.UpdateProfile(c.Request.Context(), c.Param("userId"), usersvc.UpdateInput{
		FName:    optionalForm(c, "fname"),
		LName:    optionalForm(c, "lname"),
		Email:    optionalForm(c, "email"),
		Phone:    optionalForm(c, "phone"),
		Password: optionalForm(c, "password"),
		Address:  addr,
	}, image)
	if err != nil {
		respondError(c, a.logger, err)
		return
	}
	respond(c, http.StatusOK, "User profile updated successfully", u)
}
