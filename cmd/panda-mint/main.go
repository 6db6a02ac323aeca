// panda-mint mints pan-domain cookies for local development and generates
// the RSA key pair and settings files a verifier reads.
//
// Mint a cookie signed by a private settings file:
//
//	panda-mint --private-key local.settings --email jo.bloggs@guardian.co.uk \
//	    --first Jo --last Bloggs --multifactor
//
// Generate a fresh key pair:
//
//	panda-mint --generate --out-dir ./keys
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/guardian/panda-go/internal/codec"
	"github.com/guardian/panda-go/internal/cryptox"
	"github.com/guardian/panda-go/internal/keysource"
	"github.com/guardian/panda-go/internal/panda"
)

const keyBits = 2048

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	privateKey  string
	generate    bool
	outDir      string
	cookieName  string
	user        panda.User
	expiresIn   time.Duration
	headerValue bool
}

func run(args []string, stdout io.Writer, now func() time.Time) error {
	var opts options

	flagSet := pflag.NewFlagSet("panda-mint", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.privateKey, "private-key", "k", "", "private settings file (privateKey=...) or PEM private key")
	flagSet.BoolVar(&opts.generate, "generate", false, "generate a new key pair instead of minting a cookie")
	flagSet.StringVar(&opts.outDir, "out-dir", ".", "directory for generated settings files")
	flagSet.StringVar(&opts.cookieName, "cookie-name", "gutoolsAuth-assym", "cookie name used with --header")
	flagSet.BoolVar(&opts.headerValue, "header", false, "print a full name=value Cookie header")
	flagSet.StringVar(&opts.user.FirstName, "first", "Test", "first name")
	flagSet.StringVar(&opts.user.LastName, "last", "User", "last name")
	flagSet.StringVar(&opts.user.Email, "email", "test.user@guardian.co.uk", "email")
	flagSet.StringVar(&opts.user.AvatarURL, "avatar", "", "avatar URL")
	flagSet.StringVar(&opts.user.AuthenticatingSystem, "system", "panda-mint", "authenticating system")
	flagSet.StringSliceVar(&opts.user.AuthenticatedIn, "authed-in", []string{"panda-mint"}, "systems the user is authenticated in")
	flagSet.DurationVar(&opts.expiresIn, "expires-in", time.Hour, "cookie lifetime; negative values mint an expired cookie")
	flagSet.BoolVar(&opts.user.Multifactor, "multifactor", false, "mark the user as multifactor authenticated")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if opts.generate {
		return generate(opts.outDir, stdout)
	}
	return mint(opts, stdout, now)
}

func mint(opts options, stdout io.Writer, now func() time.Time) error {
	if opts.privateKey == "" {
		return errors.New("--private-key is required")
	}

	privPEM, err := loadPrivateKey(opts.privateKey)
	if err != nil {
		return err
	}

	user := opts.user
	user.Expires = now().Add(opts.expiresIn).UnixMilli()

	cookie, err := panda.CreateCookie(user, privPEM)
	if err != nil {
		return fmt.Errorf("mint cookie: %w", err)
	}

	if opts.headerValue {
		cookie = opts.cookieName + "=" + cookie
	}
	_, err = fmt.Fprintln(stdout, cookie)
	return err
}

// loadPrivateKey accepts either a PEM file or a settings file.
func loadPrivateKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), "-----BEGIN") {
		return string(data), nil
	}

	raw, err := keysource.PrivateKeyFromConfig(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return codec.FormatPEM(raw, codec.LabelPrivate), nil
}

// generate writes <out>/panda.settings (both keys) and
// <out>/panda.settings.public (public key only).
func generate(outDir string, stdout io.Writer) error {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	rawPriv, err := cryptox.EncodePrivateKey(priv)
	if err != nil {
		return err
	}
	rawPub, err := cryptox.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}

	private, err := keysource.RenderConfig(rawPub, rawPriv)
	if err != nil {
		return err
	}
	public, err := keysource.RenderConfig(rawPub, "")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
		mode os.FileMode
	}{
		{name: "panda.settings", data: private, mode: 0o600},
		{name: "panda.settings.public", data: public, mode: 0o644},
	}
	for _, f := range files {
		path := filepath.Join(outDir, f.name)
		if err := os.WriteFile(path, f.data, f.mode); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return nil
}
