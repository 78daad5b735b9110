package simplex_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"q.log/mip/internal/ascii"
	"q.log/mip/model"
	"q.log/mip/simplex"
)

func roundTrip(t *testing.T, p *simplex.Problem) *simplex.Problem {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf))
	dumped := buf.String()
	q, err := simplex.Load(&buf)
	require.NoError(t, err)

	var again bytes.Buffer
	require.NoError(t, q.Dump(&again))
	require.Equal(t, dumped, again.String())
	return q
}

func TestDump_RoundTripUnsolved(t *testing.T) {
	p := newProblem(t, 2, model.Int64Expression(0, 8, 5), simplex.Maximization,
		le(6, 1, 1), le(45, 9, 5), ge(0, 1, 0), ge(0, 0, 1))
	integer(t, p, 0, 1)
	p.SetControlParameter(simplex.PricingTextbook)
	q := roundTrip(t, p)
	require.Equal(t, simplex.PricingTextbook, q.ControlParameter(simplex.Pricing))
	require.Equal(t, "40", optimalValue(t, q).RatString())
}

func TestDump_RoundTripSolved(t *testing.T) {
	p := newProblem(t, 2, model.Int64Expression(0, 3, 2), simplex.Minimization,
		ge(1, 1, 1), le(4, 1, 0), eq(1, 1, -1))
	require.Equal(t, "3", optimalValue(t, p).RatString())
	q := roundTrip(t, p)
	require.True(t, q.OK())
	require.Equal(t, "3", optimalValue(t, q).RatString())

	// The loaded tableau keeps working incrementally.
	require.NoError(t, p.AddConstraint(ge(2, 0, 1)))
	require.NoError(t, q.AddConstraint(ge(2, 0, 1)))
	require.Equal(t, optimalValue(t, p).RatString(), optimalValue(t, q).RatString())
}

func TestDump_RoundTripAfterMerge(t *testing.T) {
	p := newProblem(t, 1, model.Var(0), simplex.Maximization, le(5, 1))
	_, err := p.Solve(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.AddConstraint(ge(0, 1)))
	_, err = p.Solve(context.Background())
	require.NoError(t, err)
	q := roundTrip(t, p)
	require.Contains(t, mustDump(t, q), "nonneg")
}

func mustDump(t *testing.T, p *simplex.Problem) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf))
	return buf.String()
}

func TestLoad_Errors(t *testing.T) {
	_, err := simplex.Load(strings.NewReader("external_space_dim x"))
	require.ErrorIs(t, err, ascii.ErrBadFormat)

	p := newProblem(t, 1, model.Var(0), simplex.Maximization, le(5, 1))
	dump := mustDump(t, p)
	_, err = simplex.Load(strings.NewReader(strings.Replace(dump, "MAXIMIZATION", "SIDEWAYS", 1)))
	require.ErrorIs(t, err, ascii.ErrBadFormat)

	_, err = simplex.Load(strings.NewReader(dump[:len(dump)/2]))
	require.ErrorIs(t, err, ascii.ErrBadFormat)

	// Counts larger than the input are reported, not allocated.
	for _, in := range []string{
		"external_space_dim 1 internal_space_dim 0 input_cs constraints 9000000000000000000",
		"external_space_dim 1 internal_space_dim 0 input_cs constraints 1 >= size 9000000000000000000 1",
		"external_space_dim 2000000000 internal_space_dim 0",
	} {
		_, err = simplex.Load(strings.NewReader(in))
		require.ErrorIs(t, err, ascii.ErrBadFormat, in)
	}
}

func TestLoad_RejectsBadBase(t *testing.T) {
	p := newProblem(t, 2, model.Int64Expression(0, 1, 1), simplex.Maximization, le(4, 1, 2), le(6, 3, 1))
	require.Equal(t, "14/5", optimalValue(t, p).RatString())
	require.NoError(t, p.AddConstraint(ge(0, 1, 0)))

	lines := strings.Split(mustDump(t, p), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "lp_feasible"):
			lines[i] = "lp_feasible false lp_infeasible false"
		case strings.HasPrefix(line, "base "):
			fields := strings.Fields(line)
			require.Greater(t, len(fields), 2)
			fields[2] = "99"
			lines[i] = strings.Join(fields, " ")
		}
	}
	_, err := simplex.Load(strings.NewReader(strings.Join(lines, "\n")))
	require.ErrorIs(t, err, ascii.ErrBadFormat)
}
