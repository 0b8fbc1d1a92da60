package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yamdb/internal/review"
)

// reviewPath parses title_id and review_id; the second id is skipped when
// the route has no review_id.
func reviewPath(c *gin.Context) (titleID, reviewID int64, ok bool) {
	if titleID, ok = idParam(c, "title_id"); !ok {
		return 0, 0, false
	}
	if c.Param("review_id") == "" {
		return titleID, 0, true
	}
	reviewID, ok = idParam(c, "review_id")
	return titleID, reviewID, ok
}

func (a *api) listReviews(c *gin.Context) {
	titleID, _, ok := reviewPath(c)
	if !ok {
		return
	}
	p := pageFrom(c, a.PageSize)
	rs, total, err := a.Reviews.ListReviews(c.Request.Context(), titleID, p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, rs))
}

func (a *api) createReview(c *gin.Context) {
	titleID, _, ok := reviewPath(c)
	if !ok {
		return
	}
	var in review.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	r, err := a.Reviews.CreateReview(c.Request.Context(), requestOf(c), titleID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (a *api) getReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	r, err := a.Reviews.GetReview(c.Request.Context(), titleID, reviewID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *api) updateReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var in review.ReviewInput
	if !bindJSON(c, &in) {
		return
	}
	r, err := a.Reviews.UpdateReview(c.Request.Context(), requestOf(c), titleID, reviewID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *api) patchReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var p review.ReviewPatch
	if !bindJSON(c, &p) {
		return
	}
	r, err := a.Reviews.PartialUpdateReview(c.Request.Context(), requestOf(c), titleID, reviewID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *api) deleteReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	if err := a.Reviews.DeleteReview(c.Request.Context(), requestOf(c), titleID, reviewID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) listComments(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	p := pageFrom(c, a.PageSize)
	cs, total, err := a.Reviews.ListComments(c.Request.Context(), titleID, reviewID, p.Limit, p.Offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, p, total, cs))
}

func (a *api) createComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var in review.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	cm, err := a.Reviews.CreateComment(c.Request.Context(), requestOf(c), titleID, reviewID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (a *api) getComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	cm, err := a.Reviews.GetComment(c.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (a *api) updateComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	var in review.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	cm, err := a.Reviews.UpdateComment(c.Request.Context(), requestOf(c), titleID, reviewID, commentID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (a *api) patchComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	var p review.CommentPatch
	if !bindJSON(c, &p) {
		return
	}
	cm, err := a.Reviews.PartialUpdateComment(c.Request.Context(), requestOf(c), titleID, reviewID, commentID, p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (a *api) deleteComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	if err := a.Reviews.DeleteComment(c.Request.Context(), requestOf(c), titleID, reviewID, commentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
