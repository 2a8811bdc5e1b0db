package drm_test

import (
	"fmt"

	"github.com/NeowayLabs/drmkms"
)

func ExampleSetClientCap() {
	// Universal planes make the kernel report primary and cursor
	// planes next to overlays. Without the capability only overlay
	// planes are listed and none of them carries a "type" property.

	file, err := drm.OpenCard(0)
	if err != nil {
		fmt.Printf("error: %s", err.Error())
		return
	}
	defer file.Close()
	if err := drm.SetClientCap(file, drm.ClientCapUniversalPlanes, 1); err != nil {
		fmt.Printf("universal planes not supported: %s", err.Error())
		return
	}
	fmt.Printf("ok")
}
