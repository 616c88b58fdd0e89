package pantrypal

import (
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Collection names as they appear in the document store.
const (
	CollectionPantries = "pantries"
	CollectionCarts    = "carts"
)
