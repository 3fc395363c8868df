package resources

import (
	"github.com/bnema/adblock-engine/internal/dataview"
)

// Serialize writes r to v: the checksum, then the resources and the
// scriptlets, each list prefixed by its length.
func (r *Resources) Serialize(v *dataview.View) {
	v.PushASCII(r.Checksum)

	v.PushUint16(uint16(len(r.Resources)))
	for _, res := range r.Resources {
		v.PushASCII(res.Name)
		pushStrings(v, res.Aliases)
		v.PushUTF8(res.Body)
		v.PushASCII(res.ContentType)
	}

	v.PushUint16(uint16(len(r.Scriptlets)))
	for _, s := range r.Scriptlets {
		v.PushASCII(s.Name)
		pushStrings(v, s.Aliases)
		v.PushUTF8(s.Body)
		v.PushBool(s.ExecutionWorld != "")
		v.PushBool(s.ExecutionWorld == WorldIsolated)
		v.PushBool(s.RequiresTrust != nil)
		v.PushBool(s.RequiresTrust != nil && *s.RequiresTrust)
		pushStrings(v, s.Dependencies)
	}
}

// SerializedSize returns the number of bytes Serialize writes.
func (r *Resources) SerializedSize() (n int) {
	n = dataview.SizeOfASCII(r.Checksum) + 2
	for _, res := range r.Resources {
		n += dataview.SizeOfASCII(res.Name) +
			sizeOfStrings(res.Aliases) +
			dataview.SizeOfUTF8(res.Body) +
			dataview.SizeOfASCII(res.ContentType)
	}

	n += 2
	for _, s := range r.Scriptlets {
		n += dataview.SizeOfASCII(s.Name) +
			sizeOfStrings(s.Aliases) +
			dataview.SizeOfUTF8(s.Body) +
			4*dataview.SizeOfBool +
			sizeOfStrings(s.Dependencies)
	}

	return n
}

// Deserialize reads resources written by Serialize.
func Deserialize(v *dataview.View) (r *Resources, err error) {
	checksum := v.GetASCII()

	n := int(v.GetUint16())
	res := make([]Resource, 0, min(n, v.Len()))
	for range n {
		res = append(res, Resource{
			Name:        v.GetASCII(),
			Aliases:     getStrings(v),
			Body:        v.GetUTF8(),
			ContentType: v.GetASCII(),
		})
	}

	n = int(v.GetUint16())
	scriptlets := make([]Scriptlet, 0, min(n, v.Len()))
	for range n {
		s := Scriptlet{
			Name:    v.GetASCII(),
			Aliases: getStrings(v),
			Body:    v.GetUTF8(),
		}

		hasWorld, isolated := v.GetBool(), v.GetBool()
		if hasWorld {
			s.ExecutionWorld = WorldMain
			if isolated {
				s.ExecutionWorld = WorldIsolated
			}
		}

		hasTrust, trust := v.GetBool(), v.GetBool()
		if hasTrust {
			s.RequiresTrust = &trust
		}

		s.Dependencies = getStrings(v)
		scriptlets = append(scriptlets, s)
	}

	if err = v.Err(); err != nil {
		return nil, err
	}

	return New(checksum, res, scriptlets)
}

func pushStrings(v *dataview.View, strs []string) {
	v.PushUint16(uint16(len(strs)))
	for _, s := range strs {
		v.PushASCII(s)
	}
}

func getStrings(v *dataview.View) (strs []string) {
	n := int(v.GetUint16())
	strs = make([]string, 0, min(n, v.Len()))
	for range n {
		strs = append(strs, v.GetASCII())
	}

	return strs
}

func sizeOfStrings(strs []string) (n int) {
	n = 2
	for _, s := range strs {
		n += dataview.SizeOfASCII(s)
	}

	return n
}
