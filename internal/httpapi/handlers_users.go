package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yamdb/internal/user"
)

func (a *api) signup(c *gin.Context) {
	var in user.SignupInput
	if !bindJSON(c, &in) {
		return
	}
	out, err := a.Users.Signup(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) token(c *gin.Context) {
	var in user.TokenInput
	if !bindJSON(c, &in) {
		return
	}
	tok, err := a.Users.ObtainToken(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": tok})
}

func (a *api) listUsers(c *gin.Context) {
	p := pageFrom(c, a.PageSize)
	users, total, err := a.Users.List(c.Request.Context(), requestOf(c), c.Query("search"), p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, users))
}

func (a *api) createUser(c *gin.Context) {
	var in user.Input
	if !bindJSON(c, &in) {
		return
	}
	u, err := a.Users.Create(c.Request.Context(), requestOf(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (a *api) getUser(c *gin.Context) {
	username := c.Param("username")
	if username == "me" {
		a.getMe(c)
		return
	}
	u, err := a.Users.Get(c.Request.Context(), requestOf(c), username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *api) updateUser(c *gin.Context) {
	username := c.Param("username")
	if username == "me" {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"detail": `Method "PUT" not allowed.`})
		return
	}
	var in user.Input
	if !bindJSON(c, &in) {
		return
	}
	u, err := a.Users.Update(c.Request.Context(), requestOf(c), username, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *api) patchUser(c *gin.Context) {
	username := c.Param("username")
	var p user.Patch
	if !bindJSON(c, &p) {
		return
	}
	if username == "me" {
		a.patchMe(c, p)
		return
	}
	u, err := a.Users.PartialUpdate(c.Request.Context(), requestOf(c), username, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *api) deleteUser(c *gin.Context) {
	username := c.Param("username")
	if username == "me" {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"detail": `Method "DELETE" not allowed.`})
		return
	}
	if err := a.Users.Delete(c.Request.Context(), requestOf(c), username); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) getMe(c *gin.Context) {
	u, err := a.Users.Me(c.Request.Context(), requestOf(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *api) patchMe(c *gin.Context, p user.Patch) {
	u, err := a.Users.UpdateMe(c.Request.Context(), requestOf(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
