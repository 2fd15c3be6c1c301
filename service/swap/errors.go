package swap

import "fmt"

// QuoteError is returned when the quote endpoint responds with a
// non-success status. Body holds a snippet of the upstream response.
type QuoteError struct {
	StatusCode int
	Body       string
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("jupiter quote failed with status %d: %s", e.StatusCode, e.Body)
}

// SwapBuildError is returned when the swap-build endpoint responds with a
// non-success status.
type SwapBuildError struct {
	StatusCode int
	Body       string
}

func (e *SwapBuildError) Error() string {
	return fmt.Sprintf("jupiter swap build failed with status %d: %s", e.StatusCode, e.Body)
}
