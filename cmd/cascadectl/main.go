// Command cascadectl exercises the cascade library end to end: opening a
// store, showing the identity fingerprint, and running an in-process demo
// handshake and message exchange between two contexts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	cascade "github.com/cascadecrypto/cascade"
	"github.com/cascadecrypto/cascade/internal/rand"
	"github.com/cascadecrypto/cascade/pkg/exchange"
	"github.com/cascadecrypto/cascade/pkg/fingerprint"
	"github.com/cascadecrypto/cascade/pkg/handshake"
)

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "identity":
		err = runIdentity(os.Args[2:])
	case "demo":
		err = runDemo(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("cascadectl failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cascadectl <identity|demo> [flags]")
}

// runIdentity opens (or creates) a store at the given path and prints the
// identity public key's fingerprint in a few human-verifiable forms.
func runIdentity(args []string) error {
	fs := flag.NewFlagSet("identity", flag.ExitOnError)
	dbPath := fs.String("db", defaultDBPath(), "path to the cascade database")
	passphrase := fs.String("passphrase", "", "store passphrase")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, err := cascade.CreateContext(
		cascade.WithDBPath(*dbPath),
		cascade.WithPassphrase([]byte(*passphrase)),
	)
	if err != nil {
		return fmt.Errorf("opening context: %w", err)
	}
	defer ctx.Close()

	fp := fingerprint.New(ctx.IdentityPublicKey())
	fmt.Printf("hex:       %s\n", fp.Hex())
	fmt.Printf("pseudonym: %s\n", fp.Pseudonym())
	for _, e := range fp.Emoji() {
		fmt.Print(e)
	}
	fmt.Println()
	return nil
}

// runDemo builds two in-process contexts in a temporary directory, performs
// a handshake between them using a deterministic Provider double, and sends
// one message in each direction, printing what each side observes.
func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	dir := fs.String("dir", "", "working directory for the two demo databases (default: a temp dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	workDir := *dir
	if workDir == "" {
		var err error
		workDir, err = os.MkdirTemp("", "cascadectl-demo-")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(workDir)
	}

	random, err := rand.NewDefault()
	if err != nil {
		return fmt.Errorf("seeding random source: %w", err)
	}

	var rootSecret [32]byte
	if _, err := random.Read(rootSecret[:]); err != nil {
		return fmt.Errorf("drawing root secret: %w", err)
	}
	var aliceSeed, bobSeed [32]byte
	if _, err := random.Read(aliceSeed[:]); err != nil {
		return err
	}
	if _, err := random.Read(bobSeed[:]); err != nil {
		return err
	}
	aliceKP, err := exchange.FromSeed(aliceSeed[:])
	if err != nil {
		return err
	}
	bobKP, err := exchange.FromSeed(bobSeed[:])
	if err != nil {
		return err
	}

	alice, err := cascade.CreateContext(
		cascade.WithDBPath(filepath.Join(workDir, "alice.db")),
		cascade.WithPassphrase([]byte("demo")),
		cascade.WithHandshakeProvider(&handshake.Static{RootSecret: rootSecret, LocalSeed: aliceSeed}),
	)
	if err != nil {
		return fmt.Errorf("opening alice context: %w", err)
	}
	defer alice.Close()

	bob, err := cascade.CreateContext(
		cascade.WithDBPath(filepath.Join(workDir, "bob.db")),
		cascade.WithPassphrase([]byte("demo")),
		cascade.WithHandshakeProvider(&handshake.Static{RootSecret: rootSecret, LocalSeed: bobSeed}),
	)
	if err != nil {
		return fmt.Errorf("opening bob context: %w", err)
	}
	defer bob.Close()

	ctx := context.Background()
	if _, err := alice.PerformHandshake(ctx, []byte("bob"), true, bobKP.Public(), nil); err != nil {
		return fmt.Errorf("alice handshake: %w", err)
	}
	if _, err := bob.PerformHandshake(ctx, []byte("alice"), false, aliceKP.Public(), nil); err != nil {
		return fmt.Errorf("bob handshake: %w", err)
	}

	ct, err := alice.EncryptMessage([]byte("bob"), []byte("hi"), nil)
	if err != nil {
		return fmt.Errorf("alice encrypt: %w", err)
	}
	pt, err := bob.DecryptMessage([]byte("alice"), ct, nil)
	if err != nil {
		return fmt.Errorf("bob decrypt: %w", err)
	}
	fmt.Printf("alice -> bob: %q\n", pt)

	reply, err := bob.EncryptMessage([]byte("alice"), []byte("yo"), nil)
	if err != nil {
		return fmt.Errorf("bob encrypt: %w", err)
	}
	back, err := alice.DecryptMessage([]byte("bob"), reply, nil)
	if err != nil {
		return fmt.Errorf("alice decrypt: %w", err)
	}
	fmt.Printf("bob -> alice: %q\n", back)

	stats, err := alice.SessionStats()
	if err != nil {
		return fmt.Errorf("alice session stats: %w", err)
	}
	fmt.Printf("alice sessions: %d persisted, %d cached\n", stats.TotalSessions, stats.CachedSessions)

	return nil
}

func defaultDBPath() string {
	if envPath := os.Getenv("CASCADE_DB_PATH"); envPath != "" {
		return envPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "cascade.db"
	}
	return filepath.Join(home, ".config", "cascade", "db")
}
