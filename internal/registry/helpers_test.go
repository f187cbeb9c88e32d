package registry

import (
	"context"

	"github.com/roach88/fieldreg/internal/identity"
	"github.com/roach88/fieldreg/internal/ir"
)

const (
	ownerP ir.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	otherQ ir.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
	thirdR ir.Principal = "ST3NBRSFKX28FQ2ZJ1MAKX58HKHSDGNV5N7R21XCP"
)

const testHeight = 100

func as(p ir.Principal) context.Context {
	return identity.With(context.Background(), identity.Identity{Caller: p, Height: testHeight})
}

func asAt(p ir.Principal, h int64) context.Context {
	return identity.With(context.Background(), identity.Identity{Caller: p, Height: h})
}

func newTestService() *Service {
	return NewService(identity.ContextResolver{})
}

func routerAttrs() ir.EquipmentAttributes {
	return ir.EquipmentAttributes{
		EquipmentType:        "Router",
		Model:                "Ubiquiti EdgeRouter X",
		SerialNumber:         "UBNT12345678",
		Manufacturer:         "Ubiquiti",
		PurchaseDate:         90,
		InstallationDate:     95,
		LocationLatitude:     "37.7749",
		LocationLongitude:    "-122.4194",
		LocationDescription:  "Community Center Rooftop",
		IPAddress:            "192.168.1.1",
		MACAddress:           "00:11:22:33:44:55",
		FirmwareVersion:      "v2.0.9",
		PowerSource:          "Solar",
		CoverageRadiusMeters: 5000,
	}
}
