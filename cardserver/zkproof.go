package cardserver

import (
	"fmt"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/proof"
)

// dlRepWitness is the secret exponent behind a discrete-log-equality
// proof: a peer contributing hPrime = lambda*h to group key generation
// proves it knows lambda without revealing it.
type dlRepWitness struct {
	Lambda kyber.Scalar
}

// dlRepStatement is the public statement proved: gPrime and hPrime share
// the same exponent lambda relative to generators g and h.
type dlRepStatement struct {
	G, H           kyber.Point
	GPrime, HPrime kyber.Point
}

// dlRepPredicate names the two representation atoms proved: GPrime is
// lambda*G and HPrime is lambda*H, for the same secret lambda. Built with
// kyber/v4's named-atom proof.Rep/proof.And, the successors of the
// teacher's v3 proof.Rep call-then-struct-literal pair, which do not
// exist as a single identifier in any kyber release.
func dlRepPredicate() proof.Predicate {
	return proof.And(proof.Rep("GPrime", "lambda", "G"), proof.Rep("HPrime", "lambda", "H"))
}

func dlRepPoints(statement dlRepStatement) map[string]kyber.Point {
	return map[string]kyber.Point{
		"G":      statement.G,
		"H":      statement.H,
		"GPrime": statement.GPrime,
		"HPrime": statement.HPrime,
	}
}

// proveDLRep produces a zero-knowledge proof that statement.GPrime and
// statement.HPrime were both derived from the same secret exponent.
func proveDLRep(witness dlRepWitness, statement dlRepStatement) ([]byte, error) {
	secrets := map[string]kyber.Scalar{"lambda": witness.Lambda}
	prover := dlRepPredicate().Prover(Suite, secrets, dlRepPoints(statement), nil)
	data, err := proof.HashProve(Suite, "cardserver-dlrep", prover)
	if err != nil {
		return nil, fmt.Errorf("cardserver: zk proof: %w", err)
	}
	return data, nil
}

// verifyDLRep checks a proof produced by proveDLRep.
func verifyDLRep(proofData []byte, statement dlRepStatement) error {
	verifier := dlRepPredicate().Verifier(Suite, dlRepPoints(statement))
	if err := proof.HashVerify(Suite, "cardserver-dlrep", verifier, proofData); err != nil {
		return fmt.Errorf("cardserver: zk proof invalid: %w", err)
	}
	return nil
}
