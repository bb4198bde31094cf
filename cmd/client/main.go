// Команда client обращается к серверу выпуска ключей: выпуск пары,
// подпись данных и проверка подписи.
package main

import (
	"crypto/rsa"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/25x8/keypair-issuer/internal/keys"
	"github.com/25x8/keypair-issuer/internal/sender"
)

func main() {
	addrFlag := flag.String("a", "localhost:8080", "Server address")
	hashKeyFlag := flag.String("k", "", "Secret key for request hashing")
	cryptoKeyFlag := flag.String("crypto-key", "", "Path to server public key for passphrase encryption")
	nameFlag := flag.String("n", "document_key", "Key name")
	bitsFlag := flag.Int("b", 2048, "Modulus size in bits")
	passphraseFlag := flag.String("p", "", "Passphrase for the private key container")
	payloadFlag := flag.String("m", "", "Payload to sign or verify")
	signatureFlag := flag.String("s", "", "Base64 signature for verify")
	actionFlag := flag.String("action", "issue", "Action: issue, sign or verify")

	flag.Parse()

	addr := *addrFlag
	if envAddr := os.Getenv("ADDRESS"); envAddr != "" {
		addr = envAddr
	}

	hashKey := *hashKeyFlag
	if envKey := os.Getenv("KEY"); envKey != "" {
		hashKey = envKey
	}

	cryptoKeyPath := *cryptoKeyFlag
	if envCryptoKey := os.Getenv("CRYPTO_KEY"); envCryptoKey != "" {
		cryptoKeyPath = envCryptoKey
	}

	var serverPublicKey *rsa.PublicKey
	if cryptoKeyPath != "" {
		var err error
		serverPublicKey, err = keys.LoadPublicKey(cryptoKeyPath)
		if err != nil {
			log.Fatalf("Failed to load server public key: %v", err)
		}
	}

	s := sender.NewHTTPSender("http://"+addr, hashKey, serverPublicKey)

	switch *actionFlag {
	case "issue":
		resp, err := s.Issue(*nameFlag, *bitsFlag, *passphraseFlag)
		if err != nil {
			log.Fatalf("Issue failed: %v", err)
		}
		fmt.Printf("Key %s issued.\n", resp.Name)
		fmt.Printf("Fingerprint (SHA-256): %s\n", resp.Fingerprint)
		fmt.Printf("Modulus size: %d bits\n", resp.Bits)
		fmt.Print(resp.PublicKey)

	case "sign":
		if *payloadFlag == "" {
			log.Fatal("Payload (-m) is required for sign")
		}
		resp, err := s.Sign(*nameFlag, *payloadFlag, *passphraseFlag)
		if err != nil {
			log.Fatalf("Sign failed: %v", err)
		}
		fmt.Printf("Digest: %s\n", resp.Digest)
		fmt.Printf("Signature: %s\n", resp.Signature)

	case "verify":
		if *payloadFlag == "" || *signatureFlag == "" {
			log.Fatal("Payload (-m) and signature (-s) are required for verify")
		}
		valid, err := s.Verify(*nameFlag, *payloadFlag, *signatureFlag)
		if err != nil {
			log.Fatalf("Verify failed: %v", err)
		}
		if valid {
			fmt.Println("Signature is valid.")
		} else {
			fmt.Println("Signature is NOT valid.")
			os.Exit(1)
		}

	default:
		log.Fatalf("Unknown action %q", *actionFlag)
	}
}
