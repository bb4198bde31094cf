package main

import (
	"log"
	"net/http"

	"github.com/25x8/keypair-issuer/internal/app"
	"github.com/25x8/keypair-issuer/internal/buildinfo"
)

func main() {
	buildinfo.PrintBuildInfo()

	h, opts := app.InitializeApp()
	defer app.SyncLogger()
	defer h.CloseDB()

	r := app.InitializeRouter(h, opts)

	log.Printf("Key issuance server started at %s\n", opts.Addr)
	log.Fatal(http.ListenAndServe(opts.Addr, r))
}
