// Package medsearch is a Go client for the medsearch gateway.
//
// Quick start:
//
//	client, err := medsearch.New("https://api.rx-radar.com")
//	if err != nil { ... }
//
//	res, err := client.Search(ctx, medsearch.SearchRequest{
//	    SessionToken: idToken,
//	    PhoneNumber:  "+15551234567",
//	    Location:     medsearch.Location{Lat: 37.7749, Lon: -122.4194},
//	    Prescription: medsearch.Prescription{
//	        Name: "Lisinopril", Dosage: "10mg", BrandOrGeneric: "generic",
//	        Quantity: "90", Type: "tablet",
//	    },
//	})
//	if res.ShowPayment { ... }
//
// Rejections are reported as *ValidationError, ErrUnauthorized or ErrRateLimited.
package medsearch
