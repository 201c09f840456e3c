package java_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	java "github.com/libshade/libshade/frontend/java"
	"github.com/libshade/libshade/model"
)

func TestInspector_InspectSource(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantClasses []string
		wantErr     bool
	}{
		{
			name: "Simple class",
			source: `package com.example;

public class Person {
    private String name;
    private int age;

    public Person(String name, int age) {
        this.name = name;
        this.age = age;
    }

    public String getName() {
        return name;
    }
}`,
			wantClasses: []string{"com.example.Person"},
		},
		{
			name: "Interface",
			source: `package com.example.spi;

public interface Codec {
    int encode(int value);
    void reset();
}`,
			wantClasses: []string{"com.example.spi.Codec"},
		},
		{
			name: "Two classes in one unit",
			source: `package com.example;

public class First {
}

class Second extends First {
}`,
			wantClasses: []string{"com.example.First", "com.example.Second"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inspector := java.NewInspector(nil)
			m, err := inspector.InspectSource([]byte(tc.source))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, name := range tc.wantClasses {
				assert.NotNil(t, m.Class(name), "missing class %s", name)
			}
		})
	}
}

func TestInspector_ClassShape(t *testing.T) {
	source := `package com.sample;

public final class Account extends Base implements Closer {
    private long balance;
    public static int counter = 0;

    public Account(long balance) {
        this.balance = balance;
    }

    public long getBalance() {
        return balance;
    }

    protected void adjust(long delta, boolean apply) {
        this.balance = delta;
    }
}`
	inspector := java.NewInspector(nil)
	m, err := inspector.InspectSource([]byte(source))
	require.NoError(t, err)

	class := m.Class("com.sample.Account")
	require.NotNil(t, class)
	assert.Equal(t, "com.sample", class.Package)
	assert.Equal(t, "public", class.Access)
	assert.True(t, class.Final)
	assert.False(t, class.Interface)
	assert.Equal(t, "com.sample.Base", class.Super)
	assert.Equal(t, []string{"com.sample.Closer"}, class.Interfaces)

	balance := class.GetField("balance")
	require.NotNil(t, balance)
	assert.Equal(t, "private", balance.Access)
	assert.Equal(t, "long", balance.Type.String())
	assert.False(t, balance.Static)

	counter := class.GetField("counter")
	require.NotNil(t, counter)
	assert.True(t, counter.Static)
	assert.Equal(t, "0", counter.Init)

	ctors := class.Constructors()
	require.Len(t, ctors, 1)
	assert.Equal(t, "<init>(long)", ctors[0].Descriptor())

	adjust := class.GetMethod("adjust(long,boolean)")
	require.NotNil(t, adjust)
	assert.Equal(t, "protected", adjust.Access)
	assert.True(t, adjust.Return.IsVoid())
	require.Len(t, adjust.Params, 2)
	assert.Equal(t, "delta", adjust.Params[0].Name)
	assert.Equal(t, "boolean", adjust.Params[1].Type.String())
}

func TestInspector_BodyLowering(t *testing.T) {
	source := `package com.sample;

public class Pipeline {
    private int stage;

    public int advance(int step) {
        this.stage = step;
        return step;
    }

    public int run(Pipeline other) {
        int first = other.advance(1);
        other.advance(first);
        return first;
    }
}`
	inspector := java.NewInspector(nil)
	m, err := inspector.InspectSource([]byte(source))
	require.NoError(t, err)

	class := m.Class("com.sample.Pipeline")
	require.NotNil(t, class)

	advance := class.GetMethod("advance(int)")
	require.NotNil(t, advance)
	require.Len(t, advance.Body, 2)
	assert.Equal(t, model.InstrFieldWrite, advance.Body[0].Kind)
	assert.Equal(t, "com.sample.Pipeline", advance.Body[0].FieldClass)
	assert.Equal(t, "stage", advance.Body[0].FieldName)
	assert.Equal(t, model.InstrReturn, advance.Body[1].Kind)

	sites := m.CallSites("com.sample.Pipeline", "advance(int)")
	assert.Len(t, sites, 2)
	for _, site := range sites {
		ins := site.Instruction()
		assert.Equal(t, "advance", ins.TargetMethod)
		assert.Equal(t, "advance(int)", ins.TargetDesc)
		assert.Equal(t, "other", ins.Receiver)
	}
}

func TestInspector_UnresolvedCallDegradesToRaw(t *testing.T) {
	source := `package com.sample;

public class Caller {
    public void go() {
        System.out.println("hello");
    }
}`
	inspector := java.NewInspector(nil)
	m, err := inspector.InspectSource([]byte(source))
	require.NoError(t, err)

	class := m.Class("com.sample.Caller")
	require.NotNil(t, class)
	method := class.GetMethod("go()")
	require.NotNil(t, method)
	require.Len(t, method.Body, 1)
	assert.Equal(t, model.InstrRaw, method.Body[0].Kind)
	assert.Contains(t, method.Body[0].Text, "println")
}

func TestInspector_ImportQualification(t *testing.T) {
	source := `package com.sample;

import com.other.Helper;

public class User {
    private Helper helper;
    private String label;
}`
	inspector := java.NewInspector(nil)
	m, err := inspector.InspectSource([]byte(source))
	require.NoError(t, err)

	class := m.Class("com.sample.User")
	require.NotNil(t, class)
	assert.Equal(t, "com.other.Helper", class.GetField("helper").Type.Name)
	assert.Equal(t, "java.lang.String", class.GetField("label").Type.Name)
}
