package routing

import "testing"

func TestMaxGroupRetryIsPositive(t *testing.T) {
	if MaxGroupRetry <= 0 {
		t.Fatalf("MaxGroupRetry = %d, want > 0", MaxGroupRetry)
	}
}

func TestResponseAlternativeClusterName(t *testing.T) {
	resp := &Response{
		GroupID:                "group-a.orders",
		ClusterName:             "q1",
		ChosenClusterName:       "q2",
		AlternativeClusterName:  "q2",
	}
	if resp.ChosenClusterName == resp.ClusterName {
		t.Fatal("expected a decline to choose a different cluster name")
	}
	if resp.AlternativeClusterName != resp.ChosenClusterName {
		t.Fatalf("AlternativeClusterName = %q, want %q", resp.AlternativeClusterName, resp.ChosenClusterName)
	}
}
