// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage provides the miniature PTB-XL dataset
// fixture and a buffered slog handler for asserting on log output.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    fixture := testutil.NewDatasetFixture(t, 8)
//	    logger, handler := testutil.NewTestLogger(t)
//	    // run code against fixture.Root with logger
//	    assert.True(t, handler.ContainsMessage("Records inspected"))
//	}
package shared
