package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/EconSOM/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"empty data", errors.ErrCodeEmptyData, "no observations since 2018"},
		{"invalid param", errors.CodeInvalidParam, "map_size must have two entries"},
		{"budget", errors.ErrCodeBudgetExceeded, "training exceeded budget"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeInvalidGrid, "grid %dx%d has no cells", 0, 3)
	assert.Equal(t, "grid 0x3 has no cells", ae.Message)
	assert.Equal(t, errors.ErrCodeInvalidGrid, ae.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	result := errors.Wrap(nil, errors.CodeInternal, "should not matter")
	assert.Nil(t, result)
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("pq: relation \"observations\" does not exist")
	wrapped := errors.Wrap(root, errors.CodeDBQueryError, "fetch failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.CodeDBQueryError, wrapped.Code)
	assert.Equal(t, root, wrapped.Cause)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeInsufficientMatrix, "no rows")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	require.NotNil(t, outer)
	assert.Equal(t, errors.ErrCodeInsufficientMatrix, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeEmptyData, "empty")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")

	assert.Equal(t, errors.CodeInternal, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError_Method
// ─────────────────────────────────────────────────────────────────────────────

func TestError_FormatWithoutDetail(t *testing.T) {
	t.Parallel()

	s := errors.New(errors.ErrCodeEmptyData, "no data").Error()
	assert.Equal(t, "[SOM_001] no data", s)
}

func TestError_FormatWithDetail(t *testing.T) {
	t.Parallel()

	s := errors.New(errors.ErrCodeInvalidGrid, "invalid map size").WithDetail("rows=0").Error()
	assert.True(t, strings.HasPrefix(s, "[SOM_005]"))
	assert.Contains(t, s, "invalid map size: rows=0")
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWithDetail / TestWithCause
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_SetsDetailOnCopy(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeNotFound, "resource missing")
	detailed := original.WithDetail("id=42")

	assert.Empty(t, original.Detail)
	assert.Equal(t, "id=42", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeInternal, "failure")
	cause := stderrors.New("cause")
	withCause := original.WithCause(cause)

	assert.Nil(t, original.Cause)
	assert.Equal(t, cause, withCause.Cause)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_NestedChain(t *testing.T) {
	t.Parallel()

	root := errors.New(errors.ErrCodeTrainingFailed, "grid has no cells")
	wrapped := errors.Wrap(root, errors.CodeInternal, "service error")
	viaFmt := fmt.Errorf("handler: %w", wrapped)

	assert.True(t, errors.IsCode(viaFmt, errors.ErrCodeTrainingFailed))
	assert.True(t, errors.IsCode(viaFmt, errors.CodeInternal))
	assert.False(t, errors.IsCode(viaFmt, errors.CodeForbidden))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(fmt.Errorf("wrap: %w", errors.New(errors.ErrCodeObjectNotFound, "gone"))))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeEmptyData, errors.GetCode(fmt.Errorf("x: %w", errors.New(errors.ErrCodeEmptyData, "e"))))
}

func TestConvenienceFactories_ReturnCorrectCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      *errors.AppError
		wantCode errors.ErrorCode
	}{
		{"NotFound", errors.NotFound("not found"), errors.CodeNotFound},
		{"InvalidParam", errors.InvalidParam("bad input"), errors.CodeInvalidParam},
		{"Internal", errors.Internal("server error"), errors.CodeInternal},
		{"Conflict", errors.Conflict("duplicate"), errors.CodeConflict},
		{"RateLimit", errors.RateLimit("slow down"), errors.CodeRateLimit},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.wantCode, tc.err.Code)
			assert.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestStdlib_ErrorsAs_ExtractsAppError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", errors.New(errors.ErrCodeRenderFailed, "png"))

	var ae *errors.AppError
	require.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, errors.ErrCodeRenderFailed, ae.Code)
	assert.True(t, errors.Is(wrapped, ae))
}

//Personal.AI order the ending
