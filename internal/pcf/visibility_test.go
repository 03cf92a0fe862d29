package pcf

import "testing"

func TestDecideVisibility(t *testing.T) {
	acme := Supplier{ID: "acme", Name: "ACME"}
	globex := Supplier{ID: "globex", Name: "Globex"}
	bootstrap := Supplier{ID: "bootstrap", Name: "Reference data"}

	tests := []struct {
		name      string
		child     Supplier
		status    SharingStatus
		want      Visibility
		severity  Severity
		message   string
		noMention bool
	}{
		{"same supplier", acme, SharingNotRequested, VisibilityFull, "", "", true},
		{"same supplier ignores status", acme, SharingRejected, VisibilityFull, "", "", true},
		{"no request", globex, SharingNotRequested, VisibilityDenied, SeverityError,
			"You have not requested access to this product's PCF data yet.", false},
		{"pending", globex, SharingPending, VisibilityDenied, SeverityError,
			"Globex has not accepted your PCF data sharing request yet.", false},
		{"rejected", globex, SharingRejected, VisibilityDenied, SeverityError,
			"Globex has rejected your PCF data sharing request.", false},
		{"accepted", globex, SharingAccepted, VisibilityTruncated, SeverityInformation,
			"Further emission trace details are hidden to protect Globex's confidentiality.", false},
		{"accepted from bootstrap", bootstrap, SharingAccepted, VisibilityTruncated, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the decision must not depend on anything else, so ask twice
			for i := 0; i < 2; i++ {
				d := DecideVisibility(tt.child, acme, tt.status, bootstrap.ID)
				if d.Visibility != tt.want {
					t.Fatalf("visibility = %s, want %s", d.Visibility, tt.want)
				}
				if tt.noMention {
					if d.Mention != nil {
						t.Fatalf("unexpected mention %+v", d.Mention)
					}
					continue
				}
				if d.Mention == nil || d.Mention.Severity != tt.severity || d.Mention.Message != tt.message {
					t.Fatalf("mention = %+v", d.Mention)
				}
			}
		})
	}
}

func TestDecideVisibilityFallsBackToSupplierID(t *testing.T) {
	d := DecideVisibility(Supplier{ID: "sup-42"}, Supplier{ID: "acme"}, SharingPending, "")
	if d.Mention == nil || d.Mention.Message != "sup-42 has not accepted your PCF data sharing request yet." {
		t.Fatalf("mention = %+v", d.Mention)
	}
}
