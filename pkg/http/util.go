package http

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildURL joins baseURL and path and encodes queryParams. A path that is
// already absolute (e.g. a nextRecordsUrl returned by the API) keeps only the
// scheme and host of baseURL.
func BuildURL(baseURL, path string, queryParams map[string]string) (string, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("error parsing base URL: %w", err)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("error parsing path: %w", err)
	}

	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = strings.TrimSuffix(parsedURL.Path, "/") + "/" + ref.Path
	}
	parsedURL.Path = ref.Path

	q := ref.Query()
	for key, value := range queryParams {
		q.Set(key, value)
	}
	parsedURL.RawQuery = q.Encode()

	return parsedURL.String(), nil
}
