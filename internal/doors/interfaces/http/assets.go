package http

import (
	"embed"
	"io/fs"
	"net/http"
)

// DefaultScript is the URL of the built-in page reflector.
const DefaultScript = "/assets/reflector.js"

//go:embed assets
var assets embed.FS

// NewAssetHandler serves the embedded page assets under /assets/.
func NewAssetHandler() http.Handler {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}
