// Package httpapi exposes the services over HTTP with gin.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
	"yamdb/internal/auth"
	"yamdb/internal/catalog"
	"yamdb/internal/logging"
	"yamdb/internal/review"
	"yamdb/internal/user"
)

type Deps struct {
	Users    *user.Service
	Catalog  *catalog.Service
	Reviews  *review.Service
	Secret   []byte
	PageSize int
	Logger   zerolog.Logger
}

type api struct {
	Deps
}

// NewRouter wires every route under /v1 plus /health.
func NewRouter(d Deps) *gin.Engine {
	if d.PageSize <= 0 {
		d.PageSize = 10
	}
	a := &api{Deps: d}

	r := gin.New()
	r.Use(logging.Middleware(d.Logger), gin.Recovery())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	v1 := r.Group("/v1")
	v1.Use(auth.Authenticate(d.Secret, d.Users))

	v1.POST("/auth/signup/", a.signup)
	v1.POST("/auth/token/", a.token)

	api := v1.Group("", writesNeedAuth())

	api.GET("/categories/", a.listCategories)
	api.POST("/categories/", a.createCategory)
	api.DELETE("/categories/:slug/", a.deleteCategory)

	api.GET("/genres/", a.listGenres)
	api.POST("/genres/", a.createGenre)
	api.DELETE("/genres/:slug/", a.deleteGenre)

	api.GET("/titles/", a.listTitles)
	api.POST("/titles/", a.createTitle)
	api.GET("/titles/:title_id/", a.getTitle)
	api.PUT("/titles/:title_id/", a.updateTitle)
	api.PATCH("/titles/:title_id/", a.patchTitle)
	api.DELETE("/titles/:title_id/", a.deleteTitle)

	reviews := api.Group("/titles/:title_id/reviews")
	reviews.GET("/", a.listReviews)
	reviews.POST("/", a.createReview)
	reviews.GET("/:review_id/", a.getReview)
	reviews.PUT("/:review_id/", a.updateReview)
	reviews.PATCH("/:review_id/", a.patchReview)
	reviews.DELETE("/:review_id/", a.deleteReview)

	comments := reviews.Group("/:review_id/comments")
	comments.GET("/", a.listComments)
	comments.POST("/", a.createComment)
	comments.GET("/:comment_id/", a.getComment)
	comments.PUT("/:comment_id/", a.updateComment)
	comments.PATCH("/:comment_id/", a.patchComment)
	comments.DELETE("/:comment_id/", a.deleteComment)

	// "me" is dispatched inside the :username handlers; gin cannot register a
	// static segment next to a parameter here.
	api.GET("/users/", a.listUsers)
	api.POST("/users/", a.createUser)
	api.GET("/users/:username/", a.getUser)
	api.PUT("/users/:username/", a.updateUser)
	api.PATCH("/users/:username/", a.patchUser)
	api.DELETE("/users/:username/", a.deleteUser)

	return r
}

// writesNeedAuth answers anonymous unsafe requests with 401 before the body
// is read. Every write outside /auth requires a signed-in user.
func writesNeedAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := requestOf(c)
		if !req.Safe() && !req.Requester.Authenticated() {
			writeError(c, apperr.NotAuthenticated())
			return
		}
		c.Next()
	}
}

func requestOf(c *gin.Context) access.Request {
	return access.NewRequest(c.Request.Method, auth.RequesterFrom(c))
}

// idParam parses a numeric path parameter. Non-numeric ids match no route,
// so they are answered with 404.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return 0, false
	}
	return id, true
}
