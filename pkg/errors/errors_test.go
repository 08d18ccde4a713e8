package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
		expose    bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true, expose: true},
		{code: CodeReservation, status: http.StatusBadRequest, detailsOK: true, expose: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, expose: true},
		{code: CodeNotFound, status: http.StatusNotFound, expose: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true, expose: true},
		{code: CodeIdempotency, status: http.StatusConflict, detailsOK: true, expose: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
		{code: CodeGateway, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeOrphanedPayment, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
			assert.Equal(t, tt.expose, meta.ExposeMessage)
			assert.NotEmpty(t, meta.PublicMessage)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "coupon already used", New(CodeConflict, "coupon already used").PublicMessage())
	assert.Equal(t, "conflict detected", New(CodeConflict, "").PublicMessage())
	assert.Equal(t, "payment intent could not be created", Wrap(CodeGateway, stdErrors.New("dial tcp"), "request payment").PublicMessage())
}

func TestPublicDetails(t *testing.T) {
	details := map[string]string{"quantity": "must be positive"}
	assert.Equal(t, details, New(CodeValidation, "bad").WithDetails(details).PublicDetails())
	assert.Nil(t, New(CodeInternal, "bad").WithDetails(details).PublicDetails())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrapf(CodeConflict, cause, "settle %s", "txn-1")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "settle txn-1", wrapped.Message())
	assert.Equal(t, "CONFLICT: settle txn-1: boom", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: user 7", Newf(CodeNotFound, "user %d", 7).Error())
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeForbidden, typed.Code())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, CodeInternal, Normalize(nil).Code())
	assert.Equal(t, CodeInternal, Normalize(stdErrors.New("plain")).Code())
	assert.Equal(t, CodeRateLimit, Normalize(New(CodeRateLimit, "slow down")).Code())
}

func TestIsCodeAndRetryable(t *testing.T) {
	err := Wrap(CodeGateway, stdErrors.New("timeout"), "gateway down")

	assert.True(t, IsCode(err, CodeGateway))
	assert.False(t, IsCode(err, CodeInternal))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))

	assert.True(t, IsRetryable(err))
	assert.True(t, IsRetryable(stdErrors.New("plain")))
	assert.False(t, IsRetryable(New(CodeValidation, "bad")))
}

func TestDumpPostgresErrors(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "coupons_code_key", TableName: "coupons"}
	dump := Dump(Wrap(CodeConflict, pgxErr, "create coupon"))

	require.NotNil(t, dump.Postgres)
	assert.Equal(t, CodeConflict, dump.Code)
	assert.Equal(t, "23505", dump.Postgres.Code)
	assert.Len(t, dump.Chain, 2)

	fields := dump.Fields()
	assert.Equal(t, "coupons_code_key", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_column")

	pqDump := Dump(fmt.Errorf("insert: %w", &pq.Error{Code: "23503", Table: "transactions"}))
	require.NotNil(t, pqDump.Postgres)
	assert.Equal(t, "23503", pqDump.Postgres.Code)
	assert.Empty(t, pqDump.Code)
}

func TestDumpPlainError(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))

	fields := Dump(stdErrors.New("boom")).Fields()
	assert.Equal(t, map[string]any{"error": "boom", "error_chain": []string{"*errors.errorString"}}, fields)
}
