package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/queries"
)

// LoansController serves borrowing, returning and loan history.
type LoansController struct {
	lender  Lender
	history HistoryReader
}

func NewLoansController(lender Lender, history HistoryReader) *LoansController {
	return &LoansController{lender: lender, history: history}
}

// LoanRequest names the title to borrow or return. bookId is accepted as
// an alias of titleId.
type LoanRequest struct {
	TitleID uint `json:"titleId"`
	BookID  uint `json:"bookId"`
}

func (r LoanRequest) titleID() uint {
	if r.TitleID != 0 {
		return r.TitleID
	}
	return r.BookID
}

// Borrow handles POST /api/v1/transaction/borrow
func (lc *LoansController) Borrow(c *gin.Context) {
	var req LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	loan, err := lc.lender.Borrow(c.Request.Context(), auth.GetPrincipal(c), req.titleID())
	if err != nil {
		respondLendingError(c, err, "borrow")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// Return handles PATCH /api/v1/transaction/return
func (lc *LoansController) Return(c *gin.Context) {
	var req LoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	loan, err := lc.lender.Return(c.Request.Context(), auth.GetPrincipal(c), req.titleID())
	if err != nil {
		respondLendingError(c, err, "return")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// History handles GET /api/v1/transaction/history
// includeReturned=false limits the listing to open loans.
func (lc *LoansController) History(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}
	includeReturned, ok := parseBoolQuery(c, "includeReturned", true)
	if !ok {
		return
	}

	result, err := lc.history.History(c.Request.Context(), auth.GetPrincipal(c), queries.HistoryQuery{
		Page:            page,
		IncludeReturned: includeReturned,
	})
	if err != nil {
		respondLendingError(c, err, "loan history")
		return
	}
	c.JSON(http.StatusOK, result)
}
