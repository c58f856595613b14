package signature_test

import (
	"testing"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	const contents = "C0FFEE"

	t.Log("Given the need to sign and verify contents.")
	{
		t.Logf("\tTest 0:\tWhen handling a known private key.")
		{
			pub, err := signature.PublicKeyFromPrivate(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to derive the public key: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to derive the public key.", success)

			sig, err := signature.SignString(contents, pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign contents: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign contents.", success)

			if !signature.SignatureIsValid(sig, contents, pub) {
				t.Fatalf("\t%s\tTest 0:\tShould be able to verify the signature.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to verify the signature.", success)

			if signature.SignatureIsValid(sig, contents+"0", pub) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the signature for other contents.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the signature for other contents.", success)

			other, err := signature.PublicKeyFromPrivate(otherHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to derive the other public key: %s", failed, err)
			}

			if signature.SignatureIsValid(sig, contents, other) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the signature for an unrelated key.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the signature for an unrelated key.", success)
		}
	}
}

func Test_SignDeterministic(t *testing.T) {
	sig1, err := signature.SignString("Bill", pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign data: %s", failed, err)
	}

	sig2, err := signature.SignString("Bill", pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign data: %s", failed, err)
	}

	if sig1 != sig2 {
		t.Logf("got: %s", sig1)
		t.Logf("got: %s", sig2)
		t.Fatalf("\t%s\tShould get back the same signature twice.", failed)
	}
	t.Logf("\t%s\tShould get back the same signature twice.", success)
}

func Test_GenerateKeyPair(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key pair: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to generate a key pair.", success)

	if !signature.IsPublicKey(kp.PublicKey) {
		t.Fatalf("\t%s\tShould produce a public key on the curve.", failed)
	}
	t.Logf("\t%s\tShould produce a public key on the curve.", success)

	pub, err := signature.PublicKeyFromPrivate(kp.PrivateKey)
	if err != nil || pub != kp.PublicKey {
		t.Fatalf("\t%s\tShould derive the same public key from the private key.", failed)
	}
	t.Logf("\t%s\tShould derive the same public key from the private key.", success)

	sig, err := signature.SignString("hello", kp.PrivateKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign with the new key: %s", failed, err)
	}

	if !signature.SignatureIsValid(sig, "hello", kp.PublicKey) {
		t.Fatalf("\t%s\tShould verify with the new public key.", failed)
	}
	t.Logf("\t%s\tShould verify with the new public key.", success)
}

func Test_ParseKeys(t *testing.T) {
	if _, err := signature.ParsePrivateKey("0x" + pkHexKey); err != nil {
		t.Fatalf("\t%s\tShould accept a 0x prefixed private key: %s", failed, err)
	}
	t.Logf("\t%s\tShould accept a 0x prefixed private key.", success)

	if _, err := signature.ParsePrivateKey("1"); err != nil {
		t.Fatalf("\t%s\tShould accept a short private key integer: %s", failed, err)
	}
	t.Logf("\t%s\tShould accept a short private key integer.", success)

	if _, err := signature.ParsePrivateKey("zz"); err == nil {
		t.Fatalf("\t%s\tShould reject a non hex private key.", failed)
	}
	t.Logf("\t%s\tShould reject a non hex private key.", success)

	if signature.IsPublicKey("0OIl") {
		t.Fatalf("\t%s\tShould reject a value that is not base58.", failed)
	}
	t.Logf("\t%s\tShould reject a value that is not base58.", success)

	if signature.SignatureIsValid("abc", "hello", "abc") {
		t.Fatalf("\t%s\tShould reject garbage signatures.", failed)
	}
	t.Logf("\t%s\tShould reject garbage signatures.", success)
}
