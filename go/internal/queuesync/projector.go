package queuesync

import "github.com/mcdev12/slotsync/go/internal/models"

// DefaultServiceCatalog holds the minutes per service used when a server does
// not send total_duration.
var DefaultServiceCatalog = map[string]int{
	"Haircut": 20,
	"Shave":   10,
	"Massage": 15,
}

// DefaultAverageMinutes is the per-customer estimate when nothing better is known.
const DefaultAverageMinutes = 15

// Projector derives each customer's personal wait from a snapshot. It keeps no
// state between calls; every projection is recomputed from the snapshot given.
type Projector struct {
	catalog        map[string]int
	averageMinutes int
}

func NewProjector(catalog map[string]int, averageMinutes int) *Projector {
	if catalog == nil {
		catalog = DefaultServiceCatalog
	}
	if averageMinutes < 0 {
		averageMinutes = 0
	}
	return &Projector{catalog: catalog, averageMinutes: averageMinutes}
}

// DurationMinutes is the service time for one customer: the server's
// total_duration, else the catalog sum of their services, else the average.
func (p *Projector) DurationMinutes(c models.Customer) int {
	if c.TotalDuration > 0 {
		return c.TotalDuration
	}
	sum := 0
	for _, s := range c.Services {
		sum += p.catalog[s]
	}
	if sum > 0 {
		return sum
	}
	return p.averageMinutes
}

// WaitMinutes is the projected wait for the customer at index i: everyone
// ahead finishing, minus the time already spent on the head of the queue,
// clamped at zero and rounded up to whole minutes. Index 0 waits 0. An index
// equal to the queue length projects the wait for someone joining now.
func (p *Projector) WaitMinutes(snap *models.Snapshot, i int) int {
	if snap == nil || i <= 0 {
		return 0
	}
	if i > len(snap.Queue) {
		i = len(snap.Queue)
	}

	aheadSeconds := 0
	for _, c := range snap.Queue[:i] {
		aheadSeconds += p.DurationMinutes(c) * 60
	}
	return ceilMinutes(aheadSeconds - snap.ElapsedSeconds)
}

// WaitAll projects the wait for every queued customer, in queue order.
func (p *Projector) WaitAll(snap *models.Snapshot) []int {
	if snap == nil {
		return nil
	}
	waits := make([]int, len(snap.Queue))
	aheadSeconds := 0
	for i, c := range snap.Queue {
		if i > 0 {
			waits[i] = ceilMinutes(aheadSeconds - snap.ElapsedSeconds)
		}
		aheadSeconds += p.DurationMinutes(c) * 60
	}
	return waits
}

// WaitForToken projects the wait for token; ok is false when it is not queued.
func (p *Projector) WaitForToken(snap *models.Snapshot, token int) (minutes int, ok bool) {
	if snap == nil {
		return 0, false
	}
	i := snap.IndexOf(token)
	if i < 0 {
		return 0, false
	}
	return p.WaitMinutes(snap, i), true
}

func ceilMinutes(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 59) / 60
}
