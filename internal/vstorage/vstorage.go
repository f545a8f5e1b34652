// Package vstorage advances virtual-storage accounting each timestep:
// applying member drawdowns, re-crediting expired entries from a
// rolling window, and resetting volumes on the schedules a virtual
// storage node declares.
package vstorage

import (
	"time"

	"hydroengine/internal/calendar"
	"hydroengine/internal/network"
	"hydroengine/internal/state"
)

// Bookkeeper advances every virtual storage node in a Network once per
// step. It holds no per-scenario data itself; all mutable bookkeeping
// lives in the State passed to Advance, so one Bookkeeper is shared
// read-only across scenarios exactly like the Network it wraps.
type Bookkeeper struct {
	net       *network.Network
	startDate time.Time
}

// NewBookkeeper builds a Bookkeeper over net, anchored at the run's
// start date for NumberOfMonths reset scheduling.
func NewBookkeeper(net *network.Network, startDate time.Time) *Bookkeeper {
	return &Bookkeeper{net: net, startDate: startDate}
}

// Init seeds every virtual storage's starting volume and, for windowed
// nodes, an empty drawdown history.
func (b *Bookkeeper) Init(res *network.Resolver, st *state.State) error {
	for idx, vs := range b.net.VirtualStorage {
		maxVolume, err := res.ResolveF64(vs.MaxVolume, st)
		if err != nil {
			return err
		}
		initial, err := network.ResolveInitialVolume(vs.InitialVolume, maxVolume)
		if err != nil {
			return err
		}
		st.VirtualStorageVolume[idx] = initial
		if vs.Window.Enabled {
			st.VirtualStorageWindow[idx] = make([]float64, 0, vs.Window.Steps)
		}
	}
	return nil
}

// Advance applies today's drawdown to every virtual storage, re-credits
// the oldest drawdown once a rolling window is full, and resets any
// node whose schedule falls on this step.
func (b *Bookkeeper) Advance(step calendar.Step, res *network.Resolver, st *state.State) error {
	for idx, vs := range b.net.VirtualStorage {
		if !isActivePeriod(vs.Reset, step.Date) {
			continue
		}

		var drawdown float64
		for _, member := range vs.Members {
			factor, err := res.ResolveF64(member.Factor, st)
			if err != nil {
				return err
			}
			drawdown += factor * st.NodeOutFlow[member.Node]
		}

		newVolume := st.VirtualStorageVolume[idx] - drawdown

		if vs.Window.Enabled {
			window := append(st.VirtualStorageWindow[idx], drawdown)
			if len(window) > vs.Window.Steps {
				newVolume += window[0]
				window = window[1:]
			}
			st.VirtualStorageWindow[idx] = window
		}

		if resetDue(vs.Reset, b.startDate, step.Date) {
			maxVolume, err := res.ResolveF64(vs.MaxVolume, st)
			if err != nil {
				return err
			}
			switch vs.Reset.Volume {
			case network.ResetVolumeMax:
				newVolume = maxVolume
			default:
				newVolume, err = network.ResolveInitialVolume(vs.InitialVolume, maxVolume)
				if err != nil {
					return err
				}
			}
			if vs.Window.Enabled {
				st.VirtualStorageWindow[idx] = st.VirtualStorageWindow[idx][:0]
			}
		}

		st.VirtualStorageVolume[idx] = newVolume
	}
	return nil
}

// isActivePeriod reports whether date falls inside a Seasonal virtual
// storage's active window; every other reset kind draws down on every
// step.
func isActivePeriod(r network.Reset, date time.Time) bool {
	if r.Kind != network.ResetSeasonal {
		return true
	}
	start := calendar.DayOfYearConsistent(time.Date(2016, time.Month(r.StartMonth), r.StartDay, 0, 0, 0, 0, time.UTC))
	end := calendar.DayOfYearConsistent(time.Date(2016, time.Month(r.EndMonth), r.EndDay, 0, 0, 0, 0, time.UTC))
	doy := calendar.DayOfYearConsistent(date)
	if start <= end {
		return doy >= start && doy < end
	}
	// Period wraps the year boundary (e.g. Nov -> Mar).
	return doy >= start || doy < end
}

// resetDue reports whether today is the day a virtual storage's
// schedule resets its volume.
func resetDue(r network.Reset, startDate, date time.Time) bool {
	switch r.Kind {
	case network.ResetDayOfYear:
		return date.Day() == r.Day && int(date.Month()) == r.Month
	case network.ResetSeasonal:
		return date.Day() == r.StartDay && int(date.Month()) == r.StartMonth
	case network.ResetNumberOfMonths:
		if r.Months <= 0 {
			return false
		}
		elapsed := monthsBetween(startDate, date)
		return date.Day() == startDate.Day() && elapsed%r.Months == 0
	default:
		return false
	}
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}
