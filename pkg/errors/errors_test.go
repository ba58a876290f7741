package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/ledgermap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "partition",
			ID:       "VIXEN/S1",
		}
		assert.Equal(t, "partition with ID VIXEN/S1 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("entity", "abc")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{
			Field:   "partitions",
			Message: "cannot be empty",
		}
		assert.Equal(t, "validation failed for field partitions: cannot be empty", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "invalid configuration"}
		assert.Equal(t, "validation failed: invalid configuration", err.Error())
	})
}

func TestMalformedRecordError(t *testing.T) {
	err := pkgerrors.NewMalformedRecordError("OSS", "S1", "os.csv#12", "missing required column", "sale_number")
	assert.Equal(t, "malformed record os.csv#12 (sale_number): missing required column", err.Error())
	assert.True(t, pkgerrors.IsMalformed(err))
	assert.False(t, pkgerrors.IsFatal(err))

	noID := pkgerrors.NewMalformedRecordError("OSS", "S1", "", "bad row")
	assert.Equal(t, "malformed record OSS/S1: bad row", noID.Error())
}

func TestAmbiguousMatchError(t *testing.T) {
	err := pkgerrors.NewAmbiguousMatchError("cli.csv#3", "EMBEDDED_ID", []string{"a", "b"})
	assert.Contains(t, err.Error(), "2 candidates")
	assert.Contains(t, err.Error(), "EMBEDDED_ID")
	assert.True(t, pkgerrors.IsAmbiguous(err))
	assert.False(t, pkgerrors.IsFatal(err))

	var target *pkgerrors.AmbiguousMatchError
	require.True(t, errors.As(fmt.Errorf("resolve: %w", err), &target))
	assert.Equal(t, []string{"a", "b"}, target.Candidates)
}

func TestConstraintViolationError(t *testing.T) {
	err := pkgerrors.NewConstraintViolationError("S1", "100", "down_payment<=total", "total missing")
	assert.Equal(t, "constraint down_payment<=total violated by sale S1/100: total missing", err.Error())
	assert.True(t, pkgerrors.IsConstraintViolation(err))
}

func TestConfigError(t *testing.T) {
	t.Run("with component", func(t *testing.T) {
		err := pkgerrors.NewConfigError("partitions", "no partition for OSS/S2", nil)
		assert.Equal(t, "configuration error in partitions: no partition for OSS/S2", err.Error())
		assert.True(t, pkgerrors.IsConfiguration(err))
		assert.True(t, pkgerrors.IsFatal(err))
	})

	t.Run("unwrap", func(t *testing.T) {
		base := errors.New("boom")
		err := pkgerrors.WrapConfig("schema", base)
		assert.True(t, errors.Is(err, base))
		assert.Nil(t, pkgerrors.WrapConfig("schema", nil))
	})
}

func TestIntegrityError(t *testing.T) {
	err := pkgerrors.NewIntegrityError("S1", "unique_sale_number", "duplicate after dedup", "100")
	assert.Contains(t, err.Error(), "[100]")
	assert.True(t, pkgerrors.IsIntegrity(err))
	assert.True(t, pkgerrors.IsFatal(err))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.ParseError
		want string
	}{
		{
			name: "file and line",
			err:  &pkgerrors.ParseError{Format: "csv", File: "a.csv", Line: 4, Message: "bad quote"},
			want: "parse error in csv at a.csv:4: bad quote",
		},
		{
			name: "file only",
			err:  pkgerrors.NewParseError("yaml", "cfg.yaml", "bad indent", nil),
			want: "parse error in yaml file cfg.yaml: bad indent",
		},
		{
			name: "value",
			err:  pkgerrors.NewValueParseError("money", "12,3,4x", "not a number"),
			want: `money parse error for "12,3,4x": not a number`,
		},
		{
			name: "bare",
			err:  &pkgerrors.ParseError{Format: "date", Message: "empty"},
			want: "date parse error: empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, pkgerrors.IsMalformed(tt.err))
		})
	}
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := pkgerrors.WrapIO("read", "/tmp/x.csv", base)
	assert.Equal(t, "IO error during read of /tmp/x.csv: permission denied", err.Error())
	assert.True(t, pkgerrors.IsIO(err))
	assert.True(t, pkgerrors.IsFatal(err))
	assert.True(t, errors.Is(err, base))
	assert.Nil(t, pkgerrors.WrapIO("read", "x", nil))
}

func TestIsFatalPartitionExhausted(t *testing.T) {
	err := fmt.Errorf("mint: %w", pkgerrors.ErrPartitionExhausted)
	assert.True(t, pkgerrors.IsFatal(err))
}
