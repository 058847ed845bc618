package physics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/integrators"
	"github.com/san-kum/dyngraph/internal/physics"
)

var _ = Describe("InvertedPendulum", func() {
	var (
		reg *dynamo.Registry
		p   *physics.InvertedPendulum
	)

	BeforeEach(func() {
		reg = dynamo.NewRegistry(nil, nil)
		var err error
		p, err = physics.NewInvertedPendulum(reg, "pendulum")
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts upright at rest with default parameters", func() {
		Expect(p.State()).To(Equal(dynamo.State{0, 0, 0, 0}))
		Expect(p.Params()).To(Equal(map[string]float64{
			"cartMass":       1.0,
			"pendulumMass":   1.0,
			"pendulumLength": 0.5,
			"viscosity":      0.1,
		}))
		Expect(p.StateDim()).To(Equal(4))
		Expect(p.ControlDim()).To(Equal(1))
	})

	It("stays at rest upright without input", func() {
		for i := 0; i < 100; i++ {
			Expect(p.Incr(0.01)).To(Succeed())
		}
		Expect(p.State()).To(Equal(dynamo.State{0, 0, 0, 0}))
	})

	It("falls away from a small tilt", func() {
		Expect(p.SetState(dynamo.State{0, 0.01, 0, 0})).To(Succeed())
		for i := 0; i < 100; i++ {
			Expect(p.Incr(0.01)).To(Succeed())
		}
		Expect(math.Abs(p.State()[1])).To(BeNumerically(">", 0.05))
	})

	It("accelerates the cart under a constant force", func() {
		Expect(p.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
		Expect(p.Incr(0.01)).To(Succeed())
		Expect(p.Incr(0.01)).To(Succeed())

		x := p.State()
		Expect(x[2]).To(BeNumerically(">", 0))
		pos, err := p.CartPositionOutput().Get(p.Time())
		Expect(err).NotTo(HaveOccurred())
		Expect(pos).To(Equal(x[0]))
	})

	It("solves the coupled equations", func() {
		M, m, l, lambda := 1.0, 1.0, 0.5, 0.1
		theta, vel, omega, u := 0.2, 0.3, -0.4, 1.5

		d := p.Derive(dynamo.State{0, theta, vel, omega}, dynamo.Control{u}, 0)

		s, c := math.Sin(theta), math.Cos(theta)
		r1 := (M+m)*d[2] + m*l*c*d[3]
		r2 := m*l*c*d[2] + m*l*l*d[3]
		Expect(d[0]).To(Equal(vel))
		Expect(d[1]).To(Equal(omega))
		Expect(r1).To(BeNumerically("~", u+m*l*omega*omega*s-lambda*vel, 1e-12))
		Expect(r2).To(BeNumerically("~", m*physics.Gravity*l*s-lambda*omega, 1e-12))
	})

	It("adds the disturbance force to the control", func() {
		other, err := physics.NewInvertedPendulum(reg, "other")
		Expect(err).NotTo(HaveOccurred())

		Expect(p.ControlInput().Set(dynamo.Vector{2}, 0)).To(Succeed())
		Expect(other.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
		Expect(other.ForceInput().Set(1, 0)).To(Succeed())

		Expect(p.Incr(0.01)).To(Succeed())
		Expect(other.Incr(0.01)).To(Succeed())
		Expect(other.State()).To(Equal(p.State()))
		Expect(other.PreviousControl()).To(Equal(dynamo.Control{1}))
	})

	It("steps with RK4 when asked to", func() {
		rk4, err := integrators.New("rk4")
		Expect(err).NotTo(HaveOccurred())
		p.SetIntegrator(rk4)
		Expect(p.SetState(dynamo.State{0, 0.05, 0, 0})).To(Succeed())
		Expect(p.Incr(0.01)).To(Succeed())
		Expect(p.State().IsValid()).To(BeTrue())
	})

	It("leaves state untouched when a step fails", func() {
		Expect(p.Incr(0.01)).To(Succeed())
		Expect(p.ControlInput().Set(dynamo.Vector{math.Inf(1)}, 0)).To(Succeed())
		Expect(p.Incr(0.01)).To(MatchError(dynamo.ErrInvalidState))
		Expect(p.Time()).To(Equal(dynamo.Time(1)))
		Expect(p.State()).To(Equal(dynamo.State{0, 0, 0, 0}))
		Expect(p.PreviousControl()).To(Equal(dynamo.Control{0}))
	})

	It("validates parameters", func() {
		Expect(p.SetPendulumMass(0)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(p.SetPendulumLength(-1)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(p.SetCartMass(math.Inf(1))).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(p.SetParam("cartHeight", 1)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(p.SetParam("pendulumMass", 2)).To(Succeed())
		Expect(p.PendulumMass()).To(Equal(2.0))
	})
})

var _ = Describe("RegisterClasses", func() {
	It("makes both models constructible by class name", func() {
		reg := dynamo.NewRegistry(nil, nil)
		Expect(physics.RegisterClasses(reg)).To(Succeed())
		Expect(reg.Classes()).To(Equal([]string{"InvertedPendulum", "TableCart"}))

		e, err := reg.Create("TableCart", "c")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&physics.TableCart{}))

		_, err = reg.Create("InvertedPendulum", "c")
		Expect(err).To(MatchError(dynamo.ErrConstruction))

		_, err = physics.New(reg, "Segway", "s")
		Expect(err).To(MatchError(dynamo.ErrConstruction))
	})

	It("reports default parameters per class", func() {
		params, err := physics.DefaultParams(physics.ClassTableCart)
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(HaveKeyWithValue("cartHeight", 0.8))
	})
})
