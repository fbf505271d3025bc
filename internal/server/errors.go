package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/kograph/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/authorization"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	moderationdomain "github.com/smallbiznis/kograph/internal/moderation/domain"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/kograph/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

type errorClass struct {
	status int
	errs   []error
}

// errorClasses is walked in order; the first match decides the status. The
// response code is always the matched sentinel's text.
var errorClasses = []errorClass{
	{http.StatusUnauthorized, []error{
		ErrUnauthorized,
		identitydomain.ErrUnauthorized,
		paymentdomain.ErrMissingSignature,
		paymentdomain.ErrInvalidSignature,
		apikeydomain.ErrMissingAPIKey,
		apikeydomain.ErrInvalidAPIKey,
	}},
	{http.StatusForbidden, []error{
		ErrForbidden,
		authorization.ErrForbidden,
		withdrawaldomain.ErrWithdrawalBlocked,
	}},
	{http.StatusNotFound, []error{
		ErrNotFound,
		withdrawaldomain.ErrNotFound,
		checkoutdomain.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		withdrawaldomain.ErrInProgress,
	}},
	{http.StatusTooManyRequests, []error{
		ErrRateLimited,
	}},
	{http.StatusServiceUnavailable, []error{
		ErrServiceUnavailable,
	}},
	{http.StatusInternalServerError, []error{
		paymentdomain.ErrMissingStreamKey,
		checkoutdomain.ErrMissingDonationURL,
	}},
	{http.StatusBadRequest, []error{
		ErrInvalidRequest,
		withdrawaldomain.ErrInvalidAmount,
		withdrawaldomain.ErrAmountStep,
		withdrawaldomain.ErrInsufficientBalance,
		withdrawaldomain.ErrInvalidStatus,
		withdrawaldomain.ErrInvalidTransition,
		withdrawaldomain.ErrMustBeApproved,
		withdrawaldomain.ErrInvalidUser,
		checkoutdomain.ErrInvalidAmount,
		checkoutdomain.ErrInvalidUser,
		checkoutdomain.ErrInvalidKind,
		settingsdomain.ErrInvalidAmount,
		settingsdomain.ErrInvalidUser,
		paymentdomain.ErrInvalidPayload,
		paymentdomain.ErrMissingCheckoutCode,
		moderationdomain.ErrInvalidRequest,
		moderationdomain.ErrUnknownAction,
		moderationdomain.ErrMessageRequired,
		notificationdomain.ErrInvalidUser,
		notificationdomain.ErrEmptyMessage,
		apikeydomain.ErrInvalidUser,
		apikeydomain.ErrInvalidKeyID,
		auditdomain.ErrInvalidPageToken,
		identitydomain.ErrInvalidUser,
		ledgerdomain.ErrInvalidUser,
		ledgerdomain.ErrInvalidAmount,
	}},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, code := classifyError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: code})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// classifyError never echoes an unrecognised error back to the caller.
func classifyError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrInternal.Error()
	}
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.status, target.Error()
			}
		}
	}
	return http.StatusInternalServerError, ErrInternal.Error()
}

func classifyErrorForLog(err error) (int, string) {
	return classifyError(err)
}
