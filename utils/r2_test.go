package utils

import (
	"testing"
)

func TestInitR2RequiresConfiguration(t *testing.T) {
	for _, v := range []string{
		"CLOUDFLARE_ACCOUNT_ID",
		"R2_ACCESS_KEY_ID",
		"R2_ACCESS_KEY_SECRET",
		"R2_BUCKET_NAME",
		"CDN_BASE_URL",
	} {
		t.Setenv(v, "")
	}

	if err := InitR2(); err == nil {
		t.Fatal("InitR2 without R2 configuration should fail")
	}
	if ExportEnabled() {
		t.Error("export should stay disabled after a failed init")
	}
	if _, err := UploadUserExport("exports/u1/1.json", []byte("{}")); err == nil {
		t.Error("upload without a configured client should fail")
	}
}
