package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yamdb/internal/catalog"
)

func (a *api) listCategories(c *gin.Context) {
	p := pageFrom(c, a.PageSize)
	cs, total, err := a.Catalog.ListCategories(c.Request.Context(), c.Query("search"), p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, cs))
}

func (a *api) createCategory(c *gin.Context) {
	var in catalog.TermInput
	if !bindJSON(c, &in) {
		return
	}
	cat, err := a.Catalog.CreateCategory(c.Request.Context(), requestOf(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (a *api) deleteCategory(c *gin.Context) {
	if err := a.Catalog.DeleteCategory(c.Request.Context(), requestOf(c), c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) listGenres(c *gin.Context) {
	p := pageFrom(c, a.PageSize)
	gs, total, err := a.Catalog.ListGenres(c.Request.Context(), c.Query("search"), p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, gs))
}

func (a *api) createGenre(c *gin.Context) {
	var in catalog.TermInput
	if !bindJSON(c, &in) {
		return
	}
	g, err := a.Catalog.CreateGenre(c.Request.Context(), requestOf(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (a *api) deleteGenre(c *gin.Context) {
	if err := a.Catalog.DeleteGenre(c.Request.Context(), requestOf(c), c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) listTitles(c *gin.Context) {
	f, err := catalog.ParseTitleFilter(c.Query("name"), c.Query("genre"), c.Query("category"), c.Query("year"))
	if err != nil {
		writeError(c, err)
		return
	}
	p := pageFrom(c, a.PageSize)
	ts, total, err := a.Catalog.ListTitles(c.Request.Context(), f, p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, ts))
}

func (a *api) getTitle(c *gin.Context) {
	id, ok := idParam(c, "title_id")
	if !ok {
		return
	}
	t, err := a.Catalog.GetTitle(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *api) createTitle(c *gin.Context) {
	var in catalog.TitleInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := a.Catalog.CreateTitle(c.Request.Context(), requestOf(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (a *api) updateTitle(c *gin.Context) {
	id, ok := idParam(c, "title_id")
	if !ok {
		return
	}
	var in catalog.TitleInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := a.Catalog.UpdateTitle(c.Request.Context(), requestOf(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *api) patchTitle(c *gin.Context) {
	id, ok := idParam(c, "title_id")
	if !ok {
		return
	}
	var p catalog.TitlePatch
	if !bindJSON(c, &p) {
		return
	}
	t, err := a.Catalog.PartialUpdateTitle(c.Request.Context(), requestOf(c), id, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (a *api) deleteTitle(c *gin.Context) {
	id, ok := idParam(c, "title_id")
	if !ok {
		return
	}
	if err := a.Catalog.DeleteTitle(c.Request.Context(), requestOf(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
