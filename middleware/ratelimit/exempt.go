package ratelimit

import (
	"path"
	"strings"
)

var staticPrefixes = []string{
	"/_next/static",
	"/_next/image",
	"/favicon.ico",
}

var imageExtensions = map[string]struct{}{
	".svg":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".ico":  {},
}

// IsStaticAsset indica caminhos que não passam pelo rate limit
// (build output, otimizador de imagens, favicon e arquivos de imagem).
func IsStaticAsset(p string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(p))]
	return ok
}
