package physics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/integrators"
	"github.com/san-kum/dyngraph/internal/physics"
)

type countingObserver struct {
	hits, computes map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, computes: map[string]int{}}
}

func (o *countingObserver) OnHit(signal string, _ dynamo.Time) { o.hits[signal]++ }

func (o *countingObserver) OnCompute(signal string, _ dynamo.Time, _ error) { o.computes[signal]++ }

// widening returns a state one component longer than it was given.
type widening struct{}

func (widening) Step(_ dynamo.System, x dynamo.State, _ dynamo.Control, _, _ float64) (dynamo.State, error) {
	return append(x.Clone(), 0), nil
}

// mismatched wraps a model so that it reports a state dimension of 3.
type mismatched struct{ dynamo.System }

func (mismatched) StateDim() int { return 3 }

type forwarding struct{ inner dynamo.Integrator }

func (f forwarding) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	return f.inner.Step(mismatched{dyn}, x, u, t, dt)
}

var _ = Describe("TableCart", func() {
	var (
		reg  *dynamo.Registry
		cart *physics.TableCart
	)

	BeforeEach(func() {
		reg = dynamo.NewRegistry(nil, nil)
		var err error
		cart, err = physics.NewTableCart(reg, "cart")
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts with default parameters", func() {
		Expect(cart.CartMass()).To(Equal(1.0))
		Expect(cart.CartHeight()).To(Equal(0.8))
		Expect(cart.Viscosity()).To(Equal(0.0))
		Expect(cart.State()).To(Equal(dynamo.State{0}))
		Expect(cart.Time()).To(Equal(dynamo.Time(0)))
		Expect(cart.Ports()).To(Equal([]string{"control", "force", "state", "zmp"}))
	})

	It("names its signals after class, entity, kind and type", func() {
		Expect(cart.ZMPOutput().Name()).To(Equal("TableCart(cart)::output(double)::zmp"))
		Expect(cart.ControlInput().Name()).To(Equal("TableCart(cart)::input(vector)::control"))
	})

	It("stays at rest without control or force", func() {
		for _, dt := range []float64{1e-4, 0.01, 0.5, 3} {
			Expect(cart.Incr(dt)).To(Succeed())
			Expect(cart.State()).To(Equal(dynamo.State{0}))
		}
		z, err := cart.ZMPOutput().Get(cart.Time())
		Expect(err).NotTo(HaveOccurred())
		Expect(z).To(Equal(0.0))
	})

	It("integrates constant control exactly", func() {
		const (
			x0 = 0.25
			u  = 0.7
			dt = 0.01
			n  = 250
		)
		Expect(cart.SetState(dynamo.State{x0})).To(Succeed())
		Expect(cart.ControlInput().Set(dynamo.Vector{u}, 0)).To(Succeed())
		for i := 0; i < n; i++ {
			Expect(cart.Incr(dt)).To(Succeed())
		}
		Expect(cart.State()[0]).To(BeNumerically("~", x0+u*n*dt, 1e-9))
		Expect(cart.Time()).To(Equal(dynamo.Time(n)))
		Expect(cart.Elapsed()).To(BeNumerically("~", n*dt, 1e-9))
	})

	It("matches the finite-difference ZMP after one step", func() {
		Expect(cart.SetCartMass(10)).To(Succeed())
		Expect(cart.SetCartHeight(0.8)).To(Succeed())
		Expect(cart.ControlInput().Set(dynamo.Vector{1.0}, 0)).To(Succeed())

		Expect(cart.Incr(0.01)).To(Succeed())
		Expect(cart.State()[0]).To(BeNumerically("~", 0.01, 1e-12))

		accel := (1.0 - 0.0) / 0.01
		want := 0.01 - (0.8/physics.Gravity)*(accel+0/10.0)
		z, err := cart.ZMPOutput().Get(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(z).To(BeNumerically("~", want, 1e-12))
		Expect(cart.Acceleration()).To(BeNumerically("~", accel, 1e-12))
		Expect(cart.PreviousControl()).To(Equal(dynamo.Control{1.0}))
	})

	It("drops the acceleration term once the control is steady", func() {
		Expect(cart.ControlInput().Set(dynamo.Vector{0.5}, 0)).To(Succeed())
		Expect(cart.Incr(0.1)).To(Succeed())
		Expect(cart.Incr(0.1)).To(Succeed())

		z, err := cart.ZMPOutput().Get(2)
		Expect(err).NotTo(HaveOccurred())
		Expect(z).To(BeNumerically("~", 0.1, 1e-12))
	})

	It("adds the perturbation force to the ZMP", func() {
		Expect(cart.SetCartMass(2)).To(Succeed())
		Expect(cart.ForceInput().Set(4, 0)).To(Succeed())
		Expect(cart.Incr(0.01)).To(Succeed())

		z, err := cart.ZMPOutput().Get(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(z).To(BeNumerically("~", -(0.8/physics.Gravity)*2, 1e-12))
	})

	It("computes the ZMP at most once per stamp", func() {
		obs := newCountingObserver()
		reg.Graph().SetObserver(obs)
		Expect(cart.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
		Expect(cart.Incr(0.01)).To(Succeed())

		Expect(cart.SetViscosity(0.2)).To(Succeed())
		first, err := cart.ZMPOutput().Get(5)
		Expect(err).NotTo(HaveOccurred())
		second, err := cart.ZMPOutput().Get(5)
		Expect(err).NotTo(HaveOccurred())

		Expect(math.Float64bits(first)).To(Equal(math.Float64bits(second)))
		Expect(obs.computes[cart.ZMPOutput().Name()]).To(Equal(1))
		Expect(obs.hits[cart.ZMPOutput().Name()]).To(Equal(1))
	})

	It("recomputes the ZMP after a parameter change", func() {
		Expect(cart.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
		Expect(cart.Incr(0.01)).To(Succeed())
		before, err := cart.ZMPOutput().Get(1)
		Expect(err).NotTo(HaveOccurred())

		Expect(cart.SetCartHeight(0.4)).To(Succeed())
		after, err := cart.ZMPOutput().Get(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(after).NotTo(Equal(before))
		Expect(after).To(BeNumerically("~", 0.01-(0.4/physics.Gravity)*100, 1e-12))
	})

	DescribeTable("rejects a non-positive time step without touching state",
		func(dt float64) {
			Expect(cart.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
			Expect(cart.Incr(0.1)).To(Succeed())
			state, prev, stamp := cart.State(), cart.PreviousControl(), cart.Time()

			Expect(cart.ControlInput().Set(dynamo.Vector{3}, 0)).To(Succeed())
			err := cart.Incr(dt)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))

			Expect(cart.State()).To(Equal(state))
			Expect(cart.PreviousControl()).To(Equal(prev))
			Expect(cart.Time()).To(Equal(stamp))
		},
		Entry("zero", 0.0),
		Entry("negative", -0.01),
		Entry("NaN", math.NaN()),
		Entry("infinite", math.Inf(1)),
	)

	It("rejects stamps that do not increase", func() {
		Expect(cart.IncrAt(10, 0.01)).To(Succeed())
		Expect(cart.IncrAt(10, 0.01)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.IncrAt(3, 0.01)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.Incr(0.01)).To(Succeed())
		Expect(cart.Time()).To(Equal(dynamo.Time(11)))
	})

	It("rejects a control of the wrong dimension", func() {
		Expect(cart.ControlInput().Set(dynamo.Vector{1, 2}, 0)).To(Succeed())
		Expect(cart.Incr(0.01)).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(cart.Time()).To(Equal(dynamo.Time(0)))
	})

	DescribeTable("reports an integrator dimension error without touching state",
		func(integ dynamo.Integrator) {
			cart.SetIntegrator(forwarding{integ})
			Expect(cart.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
			Expect(cart.Incr(0.01)).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(cart.Time()).To(Equal(dynamo.Time(0)))
			Expect(cart.State()).To(Equal(dynamo.State{0}))
		},
		Entry("euler", integrators.NewEuler()),
		Entry("rk4", integrators.NewRK4()),
	)

	It("rejects an integrator result of the wrong length", func() {
		cart.SetIntegrator(widening{})
		Expect(cart.Incr(0.01)).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(cart.State()).To(Equal(dynamo.State{0}))
		Expect(cart.Time()).To(Equal(dynamo.Time(0)))
	})

	It("rejects a step whose ZMP is not finite", func() {
		Expect(cart.ForceInput().Set(math.Inf(1), 0)).To(Succeed())
		Expect(cart.Incr(0.01)).To(MatchError(dynamo.ErrInvalidState))
		Expect(cart.Time()).To(Equal(dynamo.Time(0)))
	})

	It("validates parameters", func() {
		Expect(cart.SetCartMass(0)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.SetCartMass(-1)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.SetCartHeight(0)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.SetViscosity(-0.1)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.SetParam("wheels", 4)).To(MatchError(dynamo.ErrInvalidParameter))
		Expect(cart.CartMass()).To(Equal(1.0))

		Expect(cart.SetParam("cartMass", 3)).To(Succeed())
		Expect(cart.Params()).To(HaveKeyWithValue("cartMass", 3.0))
	})

	It("only accepts an initial state before stepping", func() {
		Expect(cart.SetState(dynamo.State{1, 2})).To(MatchError(dynamo.ErrDimensionMismatch))
		Expect(cart.SetState(dynamo.State{math.NaN()})).To(MatchError(dynamo.ErrInvalidState))
		Expect(cart.SetState(dynamo.State{2})).To(Succeed())

		s, err := cart.StateOutput().Get(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal(dynamo.Vector{2}))

		Expect(cart.Incr(0.01)).To(Succeed())
		Expect(cart.SetState(dynamo.State{0})).To(MatchError(dynamo.ErrInvalidParameter))
	})

	It("refuses to step after release", func() {
		Expect(reg.Unregister("cart")).To(Succeed())
		Expect(cart.Incr(0.01)).To(MatchError(dynamo.ErrConfiguration))
		Expect(reg.Graph().Len()).To(Equal(0))
	})

	It("keeps the first of two entities with the same name", func() {
		_, err := physics.NewTableCart(reg, "cart")
		Expect(err).To(MatchError(dynamo.ErrConstruction))

		Expect(cart.ControlInput().Set(dynamo.Vector{1}, 0)).To(Succeed())
		Expect(reg.Incr("cart", 0.5)).To(Succeed())
		v, err := reg.Pull("cart", physics.PortState, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(dynamo.Vector{0.5}))
	})

	It("pulls a plugged control source once per stamp", func() {
		obs := newCountingObserver()
		g := reg.Graph()
		g.SetObserver(obs)

		calls := 0
		src, err := dynamo.NewOutput(g, "Source(u)::output(vector)::sout", func(dynamo.Time) (dynamo.Vector, error) {
			calls++
			return dynamo.Vector{2}, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cart.ControlInput().Plug(src)).To(Succeed())

		_, err = src.Get(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(cart.Incr(0.5)).To(Succeed())
		Expect(calls).To(Equal(1))
		Expect(cart.State()).To(Equal(dynamo.State{1}))
	})
})
