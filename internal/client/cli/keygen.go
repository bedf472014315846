package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/cryptox"
)

// keygen prints a fresh vault encryption key in the hex form the server
// configuration expects.
func (a *App) keygen() error {
	key := make([]byte, cryptox.KeySize)
	if _, err := io.ReadFull(a.random, key); err != nil {
		return fmt.Errorf("read random: %w", err)
	}
	defer common.WipeByteArray(key)

	_, err := fmt.Fprintln(a.out, hex.EncodeToString(key))
	return err
}
