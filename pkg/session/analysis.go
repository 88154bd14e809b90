package session

import "sync"

// AnalysisContext chains successive AI-analysis calls: each call records the
// response id the next call continues from. It lives on the session instead
// of in package-level state so switching workflows cannot leak a previous
// conversation into the next one.
type AnalysisContext struct {
	mu                 sync.Mutex
	previousResponseID string
}

// PreviousResponseID returns the id the next analysis call should chain from;
// empty means start a fresh conversation.
func (c *AnalysisContext) PreviousResponseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previousResponseID
}

// Advance records the latest response id.
func (c *AnalysisContext) Advance(responseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previousResponseID = responseID
}

// Reset clears the chain. Called on workflow switch.
func (c *AnalysisContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previousResponseID = ""
}
