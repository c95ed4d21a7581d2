package logsdb

import "testing"

func TestReformatQueryBodyStripsVariableDefs(t *testing.T) {
	query := `query($id: ID!, $first: Int!) {
		subgraph(id: $id) {
			deployments(first: $first) {
				id
				synced
			}
		}
	}`

	got, err := ReformatQueryBody(query)
	if err != nil {
		t.Fatalf("ReformatQueryBody: %v", err)
	}
	want := "query { subgraph(id: $id) { deployments(first: $first) { id synced } } }"
	if got != want {
		t.Fatalf("ReformatQueryBody() = %q, want %q", got, want)
	}
}

func TestReformatQueryBodyWithAlias(t *testing.T) {
	got, err := ReformatQueryBody(`query { total: count(deployment: "Qm123") }`)
	if err != nil {
		t.Fatalf("ReformatQueryBody: %v", err)
	}
	want := `query { total: count(deployment: "Qm123") }`
	if got != want {
		t.Fatalf("ReformatQueryBody() = %q, want %q", got, want)
	}
}

func TestReformatQueryBodyRejectsMultipleOperations(t *testing.T) {
	_, err := ReformatQueryBody(`query A { a } query B { b }`)
	if err == nil {
		t.Fatal("expected an error for multiple operations, got nil")
	}
}

func TestReformatQueryBodyRejectsSyntaxError(t *testing.T) {
	_, err := ReformatQueryBody(`query { a( }`)
	if err == nil {
		t.Fatal("expected a parse error, got nil")
	}
}
