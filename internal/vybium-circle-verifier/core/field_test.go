package core

import (
	"errors"
	"testing"
)

func TestM31Reduction(t *testing.T) {
	cases := []struct {
		in   uint32
		want M31
	}{
		{0, 0},
		{1, 1},
		{P - 1, M31(P - 1)},
		{P, 0},
		{P + 1, 1},
		{^uint32(0), 1},
	}
	for _, c := range cases {
		if got := NewM31(c.in); got != c.want {
			t.Errorf("NewM31(%d) = %d, want %d", c.in, got, c.want)
		}
	}
	if got := NewM31FromInt64(-1); got != M31(P-1) {
		t.Errorf("NewM31FromInt64(-1) = %d", got)
	}
	if got := NewM31FromInt64(int64(P) * 5); got != 0 {
		t.Errorf("NewM31FromInt64(5P) = %d", got)
	}
}

func TestM31Arithmetic(t *testing.T) {
	t.Run("Add_Wraps", func(t *testing.T) {
		if got := M31(P - 1).Add(2); got != 1 {
			t.Errorf("(P-1) + 2 = %d", got)
		}
	})

	t.Run("Additive_Inverse", func(t *testing.T) {
		for _, v := range []M31{0, 1, 7, M31(P - 1), 1 << 30} {
			if s := v.Add(v.Neg()); s != 0 {
				t.Errorf("%d + (-%d) = %d", v, v, s)
			}
		}
	})

	t.Run("Mul_Large_Operands", func(t *testing.T) {
		// (P-1)^2 = P^2 - 2P + 1 ≡ 1.
		if got := M31(P - 1).Mul(M31(P - 1)); got != 1 {
			t.Errorf("(P-1)^2 = %d", got)
		}
	})

	t.Run("Multiplicative_Inverse", func(t *testing.T) {
		for _, v := range []M31{1, 2, 12345, M31(P - 1), 1 << 20} {
			inv, err := v.Inverse()
			if err != nil {
				t.Fatalf("inverse(%d): %v", v, err)
			}
			if p := v.Mul(inv); p != 1 {
				t.Errorf("%d * %d = %d", v, inv, p)
			}
		}
	})

	t.Run("Inverse_Of_Zero_Errors", func(t *testing.T) {
		_, err := M31(0).Inverse()
		if !errors.Is(err, ErrZeroInverse) {
			t.Fatalf("inverse(0) = %v, want ErrZeroInverse", err)
		}
	})
}

func TestCM31Arithmetic(t *testing.T) {
	i := CM31{Real: 0, Imag: 1}

	t.Run("I_Squared_Is_Minus_One", func(t *testing.T) {
		if got := i.Mul(i); got != (CM31{Real: M31(P - 1)}) {
			t.Errorf("i^2 = %v", got)
		}
	})

	t.Run("Inverse_Round_Trip", func(t *testing.T) {
		a := CM31{Real: 1234, Imag: 5678}
		inv, err := a.Inverse()
		if err != nil {
			t.Fatal(err)
		}
		one := CM31{Real: 1}
		if p := a.Mul(inv); p != one {
			t.Errorf("a * a^-1 = %v", p)
		}
	})

	t.Run("Conjugate_Norm", func(t *testing.T) {
		a := CM31{Real: 3, Imag: 4}
		// (3+4i)(3-4i) = 25.
		if n := a.Norm(); n != 25 {
			t.Errorf("norm = %v", n)
		}
	})

	t.Run("Square_Matches_Mul", func(t *testing.T) {
		a := CM31{Real: 1234, Imag: 5678}
		if got := a.Square(); got != a.Mul(a) {
			t.Errorf("a^2 = %v, want %v", got, a.Mul(a))
		}
		// (3+4i)^2 = -7 + 24i.
		b := CM31{Real: 3, Imag: 4}
		if got := b.Square(); got != (CM31{Real: M31(P - 7), Imag: 24}) {
			t.Errorf("(3+4i)^2 = %v", got)
		}
	})
}

func TestQM31Arithmetic(t *testing.T) {
	t.Run("U_Squared_Is_Nonresidue", func(t *testing.T) {
		u := NewQM31(0, 0, 1, 0)
		if got := u.Square(); got != NewQM31(2, 1, 0, 0) {
			t.Errorf("u^2 = %v", got)
		}
	})

	t.Run("Inverse_Round_Trip", func(t *testing.T) {
		a := QM31FromUint32(11, 22, 33, 44)
		inv, err := a.Inverse()
		if err != nil {
			t.Fatal(err)
		}
		if p := a.Mul(inv); !p.Equals(QM31One()) {
			t.Errorf("a * a^-1 = %v", p)
		}
	})

	t.Run("Inverse_Of_Zero_Errors", func(t *testing.T) {
		_, err := QM31Zero().Inverse()
		if !errors.Is(err, ErrZeroInverse) {
			t.Fatalf("inverse(0) = %v, want ErrZeroInverse through the tower", err)
		}
	})

	t.Run("Limbs_Round_Trip", func(t *testing.T) {
		a := QM31FromUint32(5, 6, 7, 8)
		limbs := a.Limbs()
		if got := NewQM31(limbs[0], limbs[1], limbs[2], limbs[3]); !got.Equals(a) {
			t.Errorf("limb round trip = %v", got)
		}
	})

	t.Run("Recompose_From_Coordinates", func(t *testing.T) {
		a := QM31FromUint32(5, 6, 7, 8)
		limbs := a.Limbs()
		var coords [4]QM31
		for i, l := range limbs {
			coords[i] = QM31FromM31(l)
		}
		if got := RecomposeSecure(coords); !got.Equals(a) {
			t.Errorf("recompose = %v, want %v", got, a)
		}
	})

	t.Run("Pow_Matches_Repeated_Mul", func(t *testing.T) {
		a := QM31FromUint32(3, 1, 4, 1)
		want := QM31One()
		for k := 0; k < 7; k++ {
			want = want.Mul(a)
		}
		if got := a.Pow(7); !got.Equals(want) {
			t.Errorf("a^7 = %v, want %v", got, want)
		}
	})
}
