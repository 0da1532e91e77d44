package registry

import "encoding/hex"

// Vendor signing keys, in signer order.
var productionKeys = [Size]string{
	"02d571b7f148c5e4232c3814f777d8faeaf1a84216c78d569b71041ffc768a5b2d",
	"0363279c0c0866e50c05c799d32bd6bab0188b6de06536d1109d2ed9ce76cb335c",
	"0243aedbb6f7e71c563f8ed2ef64ec9981482519e7ef4f4aa98b27854e8c49126d",
	"02877c39fd7c62237e038235e9c075dab261630f78eeb8edb92487159fffedfdf6",
	"037384c51ae81add0a523adbb186c91b906ffb64c2c765802bf26dbd13bdf12c31",
}

var production = mustDecode(productionKeys)

func mustDecode(encoded [Size]string) *Registry {
	keys := make([][]byte, Size)
	for i, h := range encoded {
		key, err := hex.DecodeString(h)
		if err != nil {
			panic(err)
		}
		keys[i] = key
	}
	r, err := New(keys...)
	if err != nil {
		panic(err)
	}
	return r
}

// Production returns the registry of vendor keys that release firmware is signed with.
func Production() *Registry {
	return production
}
