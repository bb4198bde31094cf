// Команда keygen выпускает пару ключей RSA локально.
//
// Использование:
//
//	keygen [имя] [размер модуля] [парольная фраза] [каталог]
//
// Все параметры позиционные и необязательные: имя по умолчанию
// document_key, размер 2048, пустая фраза (ключ без шифрования),
// текущий каталог.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/25x8/keypair-issuer/internal/buildinfo"
	"github.com/25x8/keypair-issuer/internal/issuer"
	"github.com/25x8/keypair-issuer/internal/utils"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print build info and exit")
	memProfileFlag := flag.String("memprofile", "", "Write memory profile to profiles/<file> after issuance")
	flag.Parse()

	if *versionFlag {
		buildinfo.PrintBuildInfo()
		return
	}

	req := issuer.Request{
		Name:      issuer.DefaultName,
		Bits:      issuer.DefaultBits,
		OutputDir: ".",
	}

	args := flag.Args()
	if len(args) > 0 {
		req.Name = args[0]
	}
	if len(args) > 1 {
		bits, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid bit length %q: %v", args[1], err)
		}
		req.Bits = bits
	}
	if len(args) > 2 {
		req.Passphrase = args[2]
	}
	if len(args) > 3 {
		req.OutputDir = args[3]
	}

	if *memProfileFlag != "" {
		stopProfiler := utils.StartMemProfiler(*memProfileFlag)
		defer stopProfiler()
	}

	artifact, err := issuer.New().Issue(req)
	if err != nil {
		log.Fatalf("Key issuance failed: %v", err)
	}

	fmt.Println("RSA key pair issued successfully.")
	fmt.Printf("Private key saved to: %s\n", artifact.PrivateKeyPath)
	fmt.Printf("Public key saved to: %s\n", artifact.PublicKeyPath)
	fmt.Printf("Modulus size: %d bits\n", artifact.Bits)
	fmt.Printf("Fingerprint (SHA-256): %s\n", artifact.Fingerprint)
	if artifact.Encrypted {
		fmt.Println("Private key container is encrypted with the supplied passphrase.")
	} else {
		fmt.Println("Private key container is NOT encrypted.")
	}
}
