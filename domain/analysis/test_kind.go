package analysis

import "fmt"

// TestKind identifies a statistical test the engine can recommend and execute
type TestKind string

const (
	TestTTest         TestKind = "t_test"
	TestMannWhitney   TestKind = "mann_whitney"
	TestOneWayANOVA   TestKind = "one_way_anova"
	TestKruskalWallis TestKind = "kruskal_wallis"
	TestChiSquare     TestKind = "chi_square"
	TestFisherExact   TestKind = "fisher_exact"
	TestSurvival      TestKind = "survival_analysis"
)

var testKindNames = map[TestKind]string{
	TestTTest:         "Independent samples t-test",
	TestMannWhitney:   "Mann-Whitney U test",
	TestOneWayANOVA:   "One-way ANOVA",
	TestKruskalWallis: "Kruskal-Wallis H test",
	TestChiSquare:     "Chi-square test of independence",
	TestFisherExact:   "Fisher's exact test",
	TestSurvival:      "Kaplan-Meier survival analysis",
}

// AllTestKinds lists every supported test in a stable order
func AllTestKinds() []TestKind {
	return []TestKind{
		TestTTest, TestMannWhitney, TestOneWayANOVA, TestKruskalWallis,
		TestChiSquare, TestFisherExact, TestSurvival,
	}
}

// ParseTestKind validates a test identifier
func ParseTestKind(s string) (TestKind, error) {
	k := TestKind(s)
	if _, ok := testKindNames[k]; !ok {
		return "", fmt.Errorf("unknown test kind %q", s)
	}
	return k, nil
}

// DisplayName returns the human-readable test name
func (k TestKind) DisplayName() string {
	if name, ok := testKindNames[k]; ok {
		return name
	}
	return string(k)
}

// AssumptionSensitive reports whether the test relies on normality and
// variance homogeneity, i.e. whether diagnostics must run before execution
func (k TestKind) AssumptionSensitive() bool {
	return k == TestTTest || k == TestOneWayANOVA
}

// RequiresContinuousOutcome reports whether the test needs a numeric outcome
func (k TestKind) RequiresContinuousOutcome() bool {
	switch k {
	case TestTTest, TestMannWhitney, TestOneWayANOVA, TestKruskalWallis:
		return true
	}
	return false
}
