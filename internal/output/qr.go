package output

import (
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// PaymentURI returns the wallet URI for receiving to address.
func PaymentURI(address string) string {
	return "algorand://" + address
}

// CanRenderQR checks if the output writer is a terminal suitable for QR rendering.
func CanRenderQR(w io.Writer) bool {
	return isTerminal(w)
}

// RenderAddressQR draws a scannable code for address. Nothing is written
// when w is not a terminal.
func RenderAddressQR(w io.Writer, address string) {
	if !CanRenderQR(w) {
		return
	}
	qrterminal.GenerateWithConfig(PaymentURI(address), qrterminal.Config{
		Level:          qr.L,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
}
